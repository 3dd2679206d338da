package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lordpluha/chronos/internal/config"
	"github.com/lordpluha/chronos/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateMaxAge = 10 * 60 // seconds; matches the code replay window
)

// OAuthHandler drives the Google login flow: redirect to the consent
// screen with a CSRF state cookie, then handle the callback.
type OAuthHandler struct {
	Cfg    config.Config
	Auth   *service.AuthService
	Google *service.GoogleService
}

func NewOAuthHandler(cfg config.Config, auth *service.AuthService, google *service.GoogleService) *OAuthHandler {
	return &OAuthHandler{Cfg: cfg, Auth: auth, Google: google}
}

// GoogleStart generates the CSRF state, stores it in a short-lived httpOnly
// cookie and redirects the browser to Google's consent screen.
func (h *OAuthHandler) GoogleStart(c echo.Context) error {
	state, err := randomState()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to initiate Google authentication"})
	}
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.Cfg.Prod(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.Google.AuthURL(state))
}

// GoogleCallback validates the CSRF state against the cookie, runs the
// OAuth login flow (replay guard included) and redirects to the frontend
// with the auth cookies set.
func (h *OAuthHandler) GoogleCallback(c echo.Context) error {
	if provErr := c.QueryParam("error"); provErr != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Google OAuth error: " + provErr})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "authorization code not provided"})
	}

	state := c.QueryParam("state")
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid OAuth state"})
	}
	// One-shot: the state cookie is gone whether the flow succeeds or not.
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.Prod(),
		SameSite: http.SameSiteLaxMode,
	})

	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.OAuthLogin(ctx, code, requestMeta(c))
	if err != nil {
		return writeServiceError(c, err)
	}

	setAuthCookies(c, h.Cfg, pair)
	return c.Redirect(http.StatusTemporaryRedirect, h.Cfg.FrontendURL+"/profile")
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
