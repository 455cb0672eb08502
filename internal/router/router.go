// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// Deps carries everything the routes are built from.  Redis and
// Activity are optional: without Redis the cache and the rate limiter
// are skipped, without Activity the activity log route is not served.
type Deps struct {
	JWTSecret string
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Query     *handler.QueryHandler
	Activity  *handler.ActivityHandler
	Breaker   handler.BreakerState // nil when events are disabled

	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       zerolog.Logger
}

// Register wires every route onto e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterPublic(e, d)
	RegisterAdmin(e, d)
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.NewHealthHandler(d.Breaker).Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the operator login.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	g.POST("/login", d.Auth.Login)
}
