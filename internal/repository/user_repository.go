package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lordpluha/chronos/internal/model"
)

const userColumns = `id, login, email, full_name, avatar, password_hash, google_id,
	is_email_verified, two_factor_enabled, last_login_at, created_at, updated_at`

// UserRepo persists user accounts in the `users` table. Credentials are
// stored in nullable password_hash / google_id columns; scanning rebuilds
// the model.AuthMethod variant and rejects rows with neither set.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a password account. Login and email are unique; a
// duplicate of either returns ErrUserExists.
func (r *UserRepo) Create(ctx context.Context, login, email, fullName, passwordHash string) (model.User, error) {
	login = strings.TrimSpace(login)
	email = normalizeEmail(email)
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, login, email, full_name, password_hash) VALUES (?,?,?,?,?)`,
		id, login, email, fullName, passwordHash)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, err
	}
	return r.FindByID(ctx, id)
}

// CreateFederated inserts an account backed only by a Google identity. The
// email is recorded as verified because the provider vouched for it.
func (r *UserRepo) CreateFederated(ctx context.Context, login, email, fullName, avatar, googleID string) (model.User, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, login, email, full_name, avatar, google_id, is_email_verified)
		 VALUES (?,?,?,?,?,?,1)`,
		id, strings.TrimSpace(login), normalizeEmail(email), fullName, avatar, googleID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.User{}, ErrUserExists
		}
		return model.User{}, err
	}
	return r.FindByID(ctx, id)
}

// FindByLoginOrEmail resolves the identifier a user typed into the login
// form against both unique columns.
func (r *UserRepo) FindByLoginOrEmail(ctx context.Context, identifier string) (model.User, error) {
	identifier = strings.TrimSpace(identifier)
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = ? OR email = ? LIMIT 1`,
		identifier, normalizeEmail(identifier))
	return scanUser(row)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	return scanUser(row)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, normalizeEmail(email))
	return scanUser(row)
}

func (r *UserRepo) FindByGoogleID(ctx context.Context, googleID string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = ? LIMIT 1`, googleID)
	return scanUser(row)
}

// LoginExists reports whether a login is already taken; used when
// synthesizing a unique login for a new OAuth account.
func (r *UserRepo) LoginExists(ctx context.Context, login string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE login = ? LIMIT 1`, login).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LinkGoogleID attaches a Google identity to an existing account, keeping
// the account's login and password untouched.
func (r *UserRepo) LinkGoogleID(ctx context.Context, userID, googleID, avatar string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET google_id = ?, avatar = IF(? = '', avatar, ?), is_email_verified = 1
		 WHERE id = ?`,
		googleID, avatar, avatar, userID)
	return err
}

// SetTwoFactorEnabled flips the denormalized 2FA flag on the user row.
func (r *UserRepo) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET two_factor_enabled = ? WHERE id = ?`, enabled, userID)
	return err
}

// TouchLastLogin records a successful login time.
func (r *UserRepo) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET last_login_at = UTC_TIMESTAMP() WHERE id = ?`, userID)
	return err
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u            model.User
		avatar       sql.NullString
		passwordHash sql.NullString
		googleID     sql.NullString
		lastLogin    sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Login, &u.Email, &u.FullName, &avatar,
		&passwordHash, &googleID, &u.IsEmailVerified, &u.TwoFactorEnabled,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Avatar = avatar.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	switch {
	case passwordHash.Valid:
		u.Auth = model.LocalAuth{PasswordHash: passwordHash.String, GoogleID: googleID.String}
	case googleID.Valid:
		u.Auth = model.FederatedAuth{GoogleID: googleID.String}
	default:
		return model.User{}, errors.New("user row has neither password nor google identity")
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
