// Package router wires the auth endpoints onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/lordpluha/chronos/internal/config"
	"github.com/lordpluha/chronos/internal/handler"
	"github.com/lordpluha/chronos/internal/middleware"
)

// RegisterRoutes registers routes that do not belong to the auth flow.
// Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth mounts the auth subsystem under /auth. The rate limiter
// covers the whole group; the access-token middleware guards everything
// that acts on an established identity, and refresh has its own cookie
// guard.
func RegisterAuth(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	a *handler.AuthHandler, tf *handler.TwoFactorHandler, o *handler.OAuthHandler) {

	g := e.Group("/auth")
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g.POST("/registration", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh, middleware.RequireRefreshToken(cfg))

	// Google OAuth: consent redirect plus callback, both unauthenticated.
	g.GET("/google", o.GoogleStart)
	g.GET("/google/callback", o.GoogleCallback)

	authed := g.Group("")
	authed.Use(middleware.RequireAccessToken(cfg))
	authed.POST("/logout", a.Logout)
	authed.GET("/me", a.Me)

	authed.POST("/2fa/setup", tf.Setup)
	authed.POST("/2fa/enable", tf.Enable)
	authed.POST("/2fa/disable", tf.Disable)
	authed.POST("/2fa/verify", tf.Verify)
	authed.GET("/2fa/status", tf.Status)
}
