// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/labsphere/environment-reservation/internal/config"
	"github.com/labsphere/environment-reservation/internal/handler"
	"github.com/labsphere/environment-reservation/internal/middleware"
	"github.com/labsphere/environment-reservation/internal/model"
)

// Deps carries everything Register needs to build the route table.
type Deps struct {
	Cfg          config.Config
	Redis        *redis.Client
	CacheCfg     config.CacheConfig
	RateCfg      config.RateLimitConfig
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Environments *handler.EnvironmentHandler
	Reservations *handler.ReservationHandler
	History      *handler.HistoryHandler
}

// Register sets up all routes.  Public surface: health, metrics and the
// auth endpoints (rate limited).  Everything else requires a valid
// access token; admin-only routes additionally require the ADMIN role.
func Register(e *echo.Echo, d Deps) {
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	e.GET("/healthz", d.Health.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Unauthenticated auth operations, rate limited per client IP.
	authGroup := e.Group("/v1/auth")
	authGroup.Use(middleware.NewTokenBucket(d.Redis, d.RateCfg))
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)
	authGroup.POST("/logout", d.Auth.Logout)

	// Authenticated routes.  Any known role passes; per-resource rules
	// are enforced in the booking service.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	v1.Use(middleware.RequireRole(model.RoleMember, model.RoleAdmin))

	v1.GET("/me", d.Auth.Me)
	v1.PATCH("/me", d.Users.UpdateProfile)
	v1.POST("/logout", d.Auth.Logout)

	cache := middleware.NewRedisCache(d.Redis, d.CacheCfg)

	v1.GET("/environments", d.Environments.List, cache)
	v1.GET("/environments/:id", d.Environments.Get, cache)
	v1.GET("/environments/:id/availability", d.Reservations.Availability)

	v1.POST("/reservations", d.Reservations.Create)
	v1.GET("/reservations", d.Reservations.List)
	v1.GET("/reservations/:id", d.Reservations.Get)
	v1.PATCH("/reservations/:id", d.Reservations.Update)
	v1.PATCH("/reservations/:id/status", d.Reservations.UpdateStatus)

	v1.GET("/history/me", d.History.ListMine)

	// Administration.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(d.Cfg.JWTSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.GET("/users", d.Users.List)
	admin.GET("/users/:id", d.Users.Get)
	admin.POST("/users/:id/promote", d.Users.Promote)
	admin.POST("/users/:id/demote", d.Users.Demote)
	admin.POST("/users/:id/activate", d.Users.Activate)
	admin.POST("/users/:id/deactivate", d.Users.Deactivate)
	admin.DELETE("/users/:id", d.Users.Delete)

	admin.POST("/environments", d.Environments.Create)
	admin.PUT("/environments/:id", d.Environments.Update)
	admin.POST("/environments/:id/activate", d.Environments.Activate)
	admin.POST("/environments/:id/deactivate", d.Environments.Deactivate)
	admin.DELETE("/environments/:id", d.Environments.Delete)

	admin.GET("/history", d.History.List)
	admin.GET("/history/:id", d.History.Get)
}
