package service

import (
	"context"
	"time"

	"github.com/lordpluha/chronos/internal/model"
	"github.com/lordpluha/chronos/internal/utils"
)

// The services depend on narrow store interfaces rather than the concrete
// MySQL/Redis repositories so that business rules are testable against
// in-memory fakes. The repository package provides the production
// implementations.

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, login, email, fullName, passwordHash string) (model.User, error)
	CreateFederated(ctx context.Context, login, email, fullName, avatar, googleID string) (model.User, error)
	FindByLoginOrEmail(ctx context.Context, identifier string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (model.User, error)
	LoginExists(ctx context.Context, login string) (bool, error)
	LinkGoogleID(ctx context.Context, userID, googleID, avatar string) error
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// SessionStore persists issued token pairs. ConsumeByRefreshToken must be
// atomic: of any number of concurrent calls with the same token, exactly
// one returns nil.
type SessionStore interface {
	Create(ctx context.Context, userID, accessToken, refreshToken, ip string, device utils.DeviceInfo, ttlDays int) (model.Session, error)
	FindByRefreshToken(ctx context.Context, token string) (model.Session, error)
	FindByAccessToken(ctx context.Context, token string) (model.Session, error)
	ConsumeByRefreshToken(ctx context.Context, token string) error
	DeleteByAccessToken(ctx context.Context, token string) error
}

// TwoFactorStore persists TOTP records and backup codes. ConsumeBackupCode
// must be an atomic remove-if-present.
type TwoFactorStore interface {
	UpsertSecret(ctx context.Context, userID, secret string) error
	Find(ctx context.Context, userID string) (model.TwoFactorRecord, error)
	Enable(ctx context.Context, userID string, codeHashes []string) error
	Delete(ctx context.Context, userID string) error
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error)
	CountBackupCodes(ctx context.Context, userID string) (int, error)
}

// ReplayGuard records consumed OAuth authorization codes. MarkUsed must
// treat an existing marker as repository.ErrCodeAlreadyUsed.
type ReplayGuard interface {
	IsUsed(ctx context.Context, code string) (bool, error)
	MarkUsed(ctx context.Context, code string, ttl time.Duration) error
	Release(ctx context.Context, code string) error
}

// EventPublisher emits auth domain events. Publishing is best-effort;
// implementations log failures and never block the request flow.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, userID, login, email string)
	PublishSecurityAlert(ctx context.Context, userID, kind, detail string)
}
