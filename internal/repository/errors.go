// Package repository implements the persistent stores behind the auth
// subsystem: users (credentials), sessions, two-factor records and the
// consumed OAuth-code guard. Sentinel errors defined here let the service
// layer distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist. For
// lookups keyed by a secret value (refresh token, backup code) expired
// records are reported as not found as well.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when a registration collides with an existing
// login or email. Handlers translate this into HTTP 409.
var ErrUserExists = errors.New("user already exists")

// ErrSessionNotFound is returned by session lookups and by the rotation
// consume step when the presented token does not resolve to a live session.
// During rotation it is the signal that another request already consumed
// the token.
var ErrSessionNotFound = errors.New("session not found")

// ErrCodeAlreadyUsed is returned by the replay guard when an OAuth
// authorization code has been seen before. Marking a code twice is
// contention, never success.
var ErrCodeAlreadyUsed = errors.New("authorization code already used")
