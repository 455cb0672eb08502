package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// RegisterAdmin registers the catalogue mutations.  All routes require
// a valid JWT with the ADMIN role; a successful mutation purges the
// response cache.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1")
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(utils.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
		middleware.PurgeOnWrite(d.Cache, d.Redis, d.Log),
	}
	h := d.Catalog

	// ---- Movies ----
	g.POST("/movies", h.InsertMovie, mw...)
	g.DELETE("/movies/:id", h.RemoveMovie, mw...)

	// ---- Users ----
	g.POST("/users", h.InsertUser, mw...)
	g.DELETE("/users/:id", h.RemoveUser, mw...)

	// ---- Bookings ----
	g.POST("/reservations", h.BookMovie, mw...)
	g.POST("/ratings", h.RateMovie, mw...)

	// ---- Maintenance ----
	g.POST("/admin/reset", h.Reset, mw...)
	if d.Activity != nil {
		g.GET("/admin/activity", d.Activity.Recent, mw...)
	}
}
