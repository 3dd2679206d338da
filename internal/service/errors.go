// Package service contains the business rules of the auth subsystem. The
// AuthService orchestrator composes the stores, the token helpers and the
// Google client; it is the only place where auth flow decisions live.
package service

import "net/http"

// Error is a typed auth failure carrying the HTTP status the transport
// layer should use. Handlers never inspect error strings; they match the
// sentinel values below and read Status.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrInvalidCredentials covers unknown identifier and wrong password
	// alike so responses do not leak which accounts exist.
	ErrInvalidCredentials = &Error{Message: "invalid username or password", Status: http.StatusUnauthorized}

	// ErrTwoFactorRequired is a soft signal, not a hard failure: the
	// password was correct but a second factor is needed. Handlers answer
	// 200 with requires2FA=true so clients can re-prompt.
	ErrTwoFactorRequired = &Error{Message: "2FA token required", Status: http.StatusUnauthorized}

	ErrInvalidTwoFactorToken  = &Error{Message: "invalid 2FA token", Status: http.StatusUnauthorized}
	ErrTwoFactorNotConfigured = &Error{Message: "2FA not set up, run setup first", Status: http.StatusBadRequest}

	ErrRefreshTokenMissing = &Error{Message: "refresh token missing", Status: http.StatusUnauthorized}
	ErrRefreshTokenInvalid = &Error{Message: "invalid refresh token", Status: http.StatusUnauthorized}
	ErrAccessTokenInvalid  = &Error{Message: "invalid access token", Status: http.StatusUnauthorized}

	ErrReplayedAuthCode = &Error{Message: "authorization code has already been used", Status: http.StatusBadRequest}
	ErrUnverifiedEmail  = &Error{Message: "email not verified by provider", Status: http.StatusBadRequest}

	ErrAccountNotFound = &Error{Message: "user not found", Status: http.StatusNotFound}
	ErrUserExists      = &Error{Message: "user already registered", Status: http.StatusConflict}
)
