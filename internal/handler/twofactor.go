package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lordpluha/chronos/internal/middleware"
	"github.com/lordpluha/chronos/internal/service"
)

// TwoFactorHandler exposes the 2FA lifecycle endpoints. All of them sit
// behind the access-token middleware; state-changing ones additionally
// require password re-confirmation in the body.
type TwoFactorHandler struct {
	TwoFactor *service.TwoFactorService
}

func NewTwoFactorHandler(tf *service.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{TwoFactor: tf}
}

type passwordReq struct {
	Password string `json:"password"`
}
type enableReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}
type verifyReq struct {
	Token string `json:"token"`
}

// Setup generates a new secret and returns it with a provisioning QR code.
// 2FA stays disabled until Enable confirms a valid code.
func (h *TwoFactorHandler) Setup(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "password required"})
	}
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	setup, err := h.TwoFactor.Setup(ctx, userID, req.Password)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "2FA setup initiated",
		"secret":         setup.Secret,
		"qrCode":         setup.QRCode,
		"manualEntryKey": setup.ManualEntryKey,
	})
}

// Enable switches 2FA on after verifying a current TOTP code. The response
// carries the backup codes; they are shown exactly once.
func (h *TwoFactorHandler) Enable(c echo.Context) error {
	var req enableReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "token and password required"})
	}
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	codes, err := h.TwoFactor.Enable(ctx, userID, req.Token, req.Password)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "2FA enabled successfully",
		"backupCodes": codes,
	})
}

// Disable removes the 2FA record entirely.
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "password required"})
	}
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.TwoFactor.Disable(ctx, userID, req.Password); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "2FA disabled successfully"})
}

// Verify checks a TOTP or backup code out of band. A backup code that
// matches is consumed by this call.
func (h *TwoFactorHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "token required"})
	}
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	valid, err := h.TwoFactor.VerifyToken(ctx, userID, req.Token)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !valid {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"message": "Invalid 2FA token",
			"valid":   false,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "2FA token is valid",
		"valid":   true,
	})
}

// Status reports whether 2FA is configured and enabled, and how many
// backup codes remain.
func (h *TwoFactorHandler) Status(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.TwoFactor.Status(ctx, userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
