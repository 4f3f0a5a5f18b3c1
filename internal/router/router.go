// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/library-reading-room/internal/config"
	"github.com/iliyamo/library-reading-room/internal/handler"
	"github.com/iliyamo/library-reading-room/internal/middleware"
)

// Handlers groups every handler the router wires up.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Books    *handler.BookHandler
	Sessions *handler.SessionHandler
}

// Register wires all routes on the provided Echo instance. Public
// endpoints live under /v1/auth plus the health check; everything else
// sits behind JWT authentication under /v1, with catalog import and
// session administration restricted to ADMIN.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	// Health check used by load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Unauthenticated auth operations. The token bucket sits here because
	// register/login are the endpoints worth brute-forcing.
	authGroup := e.Group("/v1/auth", limiter)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole("READER", "ADMIN"))

	v1.GET("/me", h.Auth.Me)
	v1.PUT("/me/email", h.Users.UpdateEmail)

	// Catalog browsing. Read endpoints are cached; the data changes only
	// on imports so staleness within the TTL is acceptable.
	v1.GET("/books", h.Books.List, cache)
	v1.GET("/books/filter", h.Books.Filter, cache)
	v1.GET("/books/genres", h.Books.Genres)
	v1.GET("/books/:id", h.Books.Get)
	v1.GET("/books/:id/image", h.Books.Image)
	v1.GET("/books/:id/reserved-times", h.Sessions.ReservedTimesForBook, cache)

	// Session lifecycle for the authenticated reader.
	v1.POST("/sessions", h.Sessions.Create)
	v1.GET("/sessions", h.Sessions.ListOwn)
	v1.GET("/sessions/reserved-times", h.Sessions.ReservedTimesForUser, cache)
	v1.GET("/occupancy", h.Sessions.OccupancyRates, cache)

	// Administration: catalog imports, user management and full control
	// over any session.
	admin := v1.Group("")
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/books/upload/csv", h.Books.UploadCSV)
	admin.POST("/books/upload/json", h.Books.UploadJSON)
	admin.DELETE("/books", h.Books.Delete)
	admin.GET("/users", h.Users.List)
	admin.GET("/users/find", h.Users.FindByEmail)
	admin.GET("/sessions/filter", h.Sessions.Filter)
	admin.PUT("/sessions/:id", h.Sessions.Update)
	admin.DELETE("/sessions/:id", h.Sessions.Delete)
}
