package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// RegisterPublic registers the read-only listings and recommendations.
// Responses are cached in Redis until the next accepted mutation.
// Public and admin routes share the /v1 prefix, so middleware is
// attached per route: group middleware would also claim unknown /v1
// paths.
func RegisterPublic(e *echo.Echo, d Deps) {
	g := e.Group("/v1")
	mw := []echo.MiddlewareFunc{
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
		middleware.NewRedisCache(d.Cache, d.Redis),
	}
	q := d.Query

	g.GET("/movies", q.ListMovies, mw...)
	g.GET("/users", q.ListUsers, mw...)
	g.GET("/movies/:id/users", q.UsersForMovie, mw...)
	g.GET("/users/:id/movies", q.MoviesForUser, mw...)
	g.GET("/stats", q.Stats, mw...)

	g.GET("/users/:id/recommendations/popularity", q.Popularity, mw...)
	g.GET("/users/:id/recommendations/item-based", q.ItemBased, mw...)
	g.GET("/recommendations/similarity", q.Similarity, mw...)
}
