package model

import "time"

// TwoFactorRecord models a row in the `user_totp` table: one per user who
// has at least started 2FA setup. The secret exists before Enabled flips to
// true; deleting the row returns the user to the never-configured state.
//
// Backup codes are not part of this record. They live in the
// `totp_backup_codes` table as one row per unused code (stored hashed) so
// that consuming a code is a single conditional DELETE instead of an
// in-place array mutation.
type TwoFactorRecord struct {
	UserID    string     // user_totp.user_id (unique)
	Secret    string     // base32 TOTP secret
	Enabled   bool       // user_totp.is_enabled
	EnabledAt *time.Time // when 2FA was switched on (nil while pending)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorStatus is the sanitized view returned by GET /auth/2fa/status.
type TwoFactorStatus struct {
	Enabled              bool `json:"is2FAEnabled"`
	Configured           bool `json:"isSetup"`
	RemainingBackupCodes int  `json:"backupCodesCount"`
}
