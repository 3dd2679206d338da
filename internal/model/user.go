package model

import "time"

// AuthMethod is the credential attached to a user account. Every account
// carries exactly one variant: LocalAuth for password accounts (which may
// additionally be linked to a Google identity) or FederatedAuth for
// accounts created through Google OAuth that never had a password.
type AuthMethod interface {
	isAuthMethod()
}

// LocalAuth is a password credential. GoogleID is non-empty once a Google
// identity has been linked to the account.
type LocalAuth struct {
	PasswordHash string // bcrypt hash, users.password_hash
	GoogleID     string // users.google_id, empty when not linked
}

// FederatedAuth is a Google-only credential; the account has no password.
type FederatedAuth struct {
	GoogleID string // users.google_id
}

func (LocalAuth) isAuthMethod()     {}
func (FederatedAuth) isAuthMethod() {}

// User represents a row in the `users` table. Credentials live behind the
// Auth field rather than as conditionally-filled columns so that the
// "password or external identity" rule is visible in the type.
//
// Fields:
//
//	ID               – uuid primary key.
//	Login            – unique login name.
//	Email            – unique email address.
//	FullName         – display name.
//	Avatar           – optional avatar URL (from Google profile).
//	IsEmailVerified  – true for OAuth-created accounts and confirmed emails.
//	TwoFactorEnabled – denormalized flag mirroring the user_totp record.
//	LastLoginAt      – timestamp of the most recent successful login.
type User struct {
	ID               string
	Login            string
	Email            string
	FullName         string
	Avatar           string
	IsEmailVerified  bool
	TwoFactorEnabled bool
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Auth             AuthMethod
}

// GoogleID returns the linked Google identity regardless of variant, or ""
// when the account has no Google link.
func (u *User) GoogleID() string {
	switch a := u.Auth.(type) {
	case LocalAuth:
		return a.GoogleID
	case FederatedAuth:
		return a.GoogleID
	}
	return ""
}
