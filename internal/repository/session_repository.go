package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lordpluha/chronos/internal/model"
	"github.com/lordpluha/chronos/internal/utils"
)

const sessionColumns = `id, user_id, access_token, refresh_token, ip_address,
	user_agent, device, expires_at, created_at`

// SessionRepo persists issued token pairs in the `sessions` table. Both
// token columns are indexed (refresh_token uniquely) so either token
// resolves a session in one lookup.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session for a freshly issued token pair.
func (r *SessionRepo) Create(ctx context.Context, userID, accessToken, refreshToken, ip string, device utils.DeviceInfo, ttlDays int) (model.Session, error) {
	s := model.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IPAddress:    ip,
		UserAgent:    device.UserAgent,
		Device:       device.Title,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
		CreatedAt:    time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, access_token, refresh_token, ip_address, user_agent, device, expires_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.UserID, s.AccessToken, s.RefreshToken, s.IPAddress, s.UserAgent, s.Device, s.ExpiresAt)
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}

// FindByRefreshToken returns the live session bound to a refresh token.
// Expired rows count as absent.
func (r *SessionRepo) FindByRefreshToken(ctx context.Context, token string) (model.Session, error) {
	return r.findByToken(ctx, "refresh_token", token)
}

// FindByAccessToken returns the live session bound to an access token.
func (r *SessionRepo) FindByAccessToken(ctx context.Context, token string) (model.Session, error) {
	return r.findByToken(ctx, "access_token", token)
}

func (r *SessionRepo) findByToken(ctx context.Context, column, token string) (model.Session, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE `+column+` = ? AND expires_at > UTC_TIMESTAMP() LIMIT 1`, token)
	return scanSession(row)
}

// ConsumeByRefreshToken atomically invalidates the session bound to a
// refresh token. The single conditional DELETE is the rotation gate: of two
// requests racing on the same token, exactly one observes an affected row
// and may go on to insert the replacement session; the other gets
// ErrSessionNotFound. Never split this into a lookup followed by a delete.
func (r *SessionRepo) ConsumeByRefreshToken(ctx context.Context, token string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM sessions WHERE refresh_token = ? AND expires_at > UTC_TIMESTAMP()`, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteByAccessToken removes the single session bound to an access token.
// Deleting an already-gone session is not an error.
func (r *SessionRepo) DeleteByAccessToken(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM sessions WHERE access_token = ?`, token)
	return err
}

// DeleteExpired sweeps sessions past their retention window and returns the
// number of rows removed. Called periodically from main.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken,
		&s.IPAddress, &s.UserAgent, &s.Device, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	return s, nil
}
