package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lordpluha/chronos/internal/config"
	"github.com/lordpluha/chronos/internal/middleware"
	"github.com/lordpluha/chronos/internal/service"
)

const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the core auth endpoints.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Token    string `json:"token"` // optional TOTP or backup code
}
type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates a password account. No tokens are issued; the client
// logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.TrimSpace(req.Email)
	if req.Login == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "login/email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Register(ctx, req.Login, req.Email, req.Password); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "user registered"})
}

// Login verifies credentials and establishes a session. When the account
// has 2FA enabled and the body carries no token, the response is 200 with
// requires2FA=true and no tokens, so the client can re-prompt.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "login/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Login, req.Password, req.Token, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorRequired) {
			return c.JSON(http.StatusOK, echo.Map{
				"requires2FA": true,
				"message":     service.ErrTwoFactorRequired.Message,
			})
		}
		return writeServiceError(c, err)
	}

	setAuthCookies(c, h.Cfg, pair)
	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh rotates the refresh token from the cookie. On any failure the
// auth cookies are cleared so a broken client stops retrying a dead token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	oldRefresh, _ := c.Get("refresh_token").(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, oldRefresh, requestMeta(c))
	if err != nil {
		clearAuthCookies(c, h.Cfg)
		return writeServiceError(c, err)
	}

	setAuthCookies(c, h.Cfg, pair)
	return c.JSON(http.StatusOK, echo.Map{"message": "token refreshed"})
}

// Logout deletes the session bound to the presented access token and
// clears both cookies. Other sessions of the user survive.
func (h *AuthHandler) Logout(c echo.Context) error {
	accessToken, _ := c.Get(middleware.CtxAccessToken).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, accessToken); err != nil {
		return writeServiceError(c, err)
	}
	clearAuthCookies(c, h.Cfg)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's sanitized profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	user, err := h.Auth.Me(ctx, userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":                user.ID,
		"login":             user.Login,
		"email":             user.Email,
		"full_name":         user.FullName,
		"avatar":            user.Avatar,
		"google_id":         user.GoogleID(),
		"is_email_verified": user.IsEmailVerified,
		"twoFactorEnabled":  user.TwoFactorEnabled,
		"lastLoginAt":       user.LastLoginAt,
		"created":           user.CreatedAt,
	})
}

// ----- shared helpers -----

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func requestMeta(c echo.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// writeServiceError maps typed service failures to their HTTP status and
// lets everything else surface as an opaque 500.
func writeServiceError(c echo.Context, err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return c.JSON(svcErr.Status, echo.Map{"message": svcErr.Message})
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
}

// setAuthCookies installs the token pair. The access cookie is readable by
// the frontend (httpOnly=false) so it can attach the token to API calls;
// the refresh cookie is httpOnly and only travels to /auth endpoints.
func setAuthCookies(c echo.Context, cfg config.Config, pair service.TokenPair) {
	now := time.Now().UTC()
	c.SetCookie(&http.Cookie{
		Name:     cfg.AccessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(pair.AccessExp.Sub(now) / time.Second),
		HttpOnly: false,
		Secure:   cfg.Prod(),
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     cfg.RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(pair.RefreshExp.Sub(now) / time.Second),
		HttpOnly: true,
		Secure:   cfg.Prod(),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookies(c echo.Context, cfg config.Config) {
	for _, name := range []string{cfg.AccessCookieName, cfg.RefreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == cfg.RefreshCookieName,
			Secure:   cfg.Prod(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}
