package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lordpluha/chronos/internal/model"
)

// TwoFactorRepo persists per-user TOTP state in the `user_totp` table and
// unused backup codes in `totp_backup_codes` (one hashed code per row).
type TwoFactorRepo struct{ DB *sql.DB }

func NewTwoFactorRepo(db *sql.DB) *TwoFactorRepo { return &TwoFactorRepo{DB: db} }

// UpsertSecret stores a freshly generated secret in the disabled state.
// Re-running setup before enabling replaces the previous secret.
func (r *TwoFactorRepo) UpsertSecret(ctx context.Context, userID, secret string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_totp (user_id, secret_key, is_enabled)
		 VALUES (?,?,0)
		 ON DUPLICATE KEY UPDATE secret_key = VALUES(secret_key), is_enabled = 0, enabled_at = NULL`,
		userID, secret)
	return err
}

// Find returns the user's 2FA record, ErrNotFound when 2FA was never set up.
func (r *TwoFactorRepo) Find(ctx context.Context, userID string) (model.TwoFactorRecord, error) {
	var (
		rec       model.TwoFactorRecord
		enabledAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, secret_key, is_enabled, enabled_at, created_at, updated_at
		 FROM user_totp WHERE user_id = ? LIMIT 1`, userID).
		Scan(&rec.UserID, &rec.Secret, &rec.Enabled, &enabledAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TwoFactorRecord{}, ErrNotFound
	}
	if err != nil {
		return model.TwoFactorRecord{}, err
	}
	if enabledAt.Valid {
		t := enabledAt.Time
		rec.EnabledAt = &t
	}
	return rec, nil
}

// Enable marks the record enabled and installs the backup-code set in one
// transaction. Any codes left over from a previous enablement are dropped.
func (r *TwoFactorRepo) Enable(ctx context.Context, userID string, codeHashes []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE user_totp SET is_enabled = 1, enabled_at = UTC_TIMESTAMP() WHERE user_id = ?`,
		userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM totp_backup_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, h := range codeHashes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO totp_backup_codes (user_id, code_hash) VALUES (?,?)`,
			userID, h); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes the record and every remaining backup code, returning the
// user to the never-configured state.
func (r *TwoFactorRepo) Delete(ctx context.Context, userID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM totp_backup_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_totp WHERE user_id = ?`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeBackupCode deletes the row matching (user, code hash) and reports
// whether a row was actually removed. The conditional DELETE makes
// consumption single-use even when two verification attempts race on the
// same code: only one of them sees an affected row.
func (r *TwoFactorRepo) ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM totp_backup_codes WHERE user_id = ? AND code_hash = ?`,
		userID, codeHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountBackupCodes returns how many unused backup codes the user has left.
func (r *TwoFactorRepo) CountBackupCodes(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM totp_backup_codes WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
