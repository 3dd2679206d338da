package model

import "time"

// Session models a row in the `sessions` table: one issued access/refresh
// token pair bound to a user and the device it was issued to. A session is
// deleted on logout or when its refresh token is rotated; rows past
// ExpiresAt are treated as absent and swept lazily.
//
// Fields:
//
//	ID           – uuid primary key.
//	UserID       – owner of the session.
//	AccessToken  – signed access JWT as issued.
//	RefreshToken – signed refresh JWT; unique across all sessions.
//	IPAddress    – client IP captured at issue time.
//	UserAgent    – raw User-Agent header (truncated).
//	Device       – short descriptor, e.g. "Chrome on Linux (desktop)".
//	ExpiresAt    – hard retention bound regardless of use.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	IPAddress    string
	UserAgent    string
	Device       string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
