package middleware // reusable HTTP middleware for the auth API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lordpluha/chronos/internal/config"
	"github.com/lordpluha/chronos/internal/utils"
)

// Context keys populated by RequireAccessToken.
const (
	CtxUserID      = "user_id"
	CtxUsername    = "username"
	CtxAccessToken = "access_token"
)

// RequireAccessToken validates the access token and injects its claims into
// the request context. The token is read from the configured access cookie
// first (the browser flow) and falls back to a Bearer Authorization header
// for API clients. Expired and malformed tokens both answer 401.
func RequireAccessToken(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if cookie, err := c.Cookie(cfg.AccessCookieName); err == nil && cookie.Value != "" {
				raw = cookie.Value
			} else if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "access token required"})
			}

			claims, err := utils.VerifyToken(cfg.JWTSecret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxUsername, claims.Username)
			c.Set(CtxAccessToken, raw)
			return next(c)
		}
	}
}

// RequireRefreshToken ensures the refresh cookie is present and stores its
// raw value in the context. Validity is checked by the rotation itself; the
// middleware only guards against the cookie being absent entirely.
func RequireRefreshToken(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cfg.RefreshCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "refresh token missing"})
			}
			c.Set("refresh_token", cookie.Value)
			return next(c)
		}
	}
}
