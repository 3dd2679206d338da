package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/lordpluha/chronos/internal/config"
	"github.com/lordpluha/chronos/internal/model"
	"github.com/lordpluha/chronos/internal/repository"
	"github.com/lordpluha/chronos/internal/utils"
)

// oauthCodeTTL is how long a consumed authorization code stays marked. It
// only needs to outlive the provider's own code validity window.
const oauthCodeTTL = 10 * time.Minute

// TokenPair is the result of any flow that establishes a session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         model.User
}

// RequestMeta carries per-request client facts into session creation.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuthService orchestrates registration, login, token rotation, logout and
// OAuth login. It owns no state of its own; every invariant is enforced by
// the stores it composes.
type AuthService struct {
	cfg       config.Config
	users     UserStore
	sessions  SessionStore
	twoFactor *TwoFactorService
	google    GoogleVerifier
	guard     ReplayGuard
	events    EventPublisher
}

func NewAuthService(cfg config.Config, users UserStore, sessions SessionStore,
	twoFactor *TwoFactorService, google GoogleVerifier, guard ReplayGuard,
	events EventPublisher) *AuthService {
	return &AuthService{
		cfg:       cfg,
		users:     users,
		sessions:  sessions,
		twoFactor: twoFactor,
		google:    google,
		guard:     guard,
		events:    events,
	}
}

// Register creates a local password account. The caller gets no tokens;
// logging in is a separate step.
func (s *AuthService) Register(ctx context.Context, login, email, password string) error {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u, err := s.users.Create(ctx, login, email, login, hash)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return ErrUserExists
		}
		return err
	}
	if s.events != nil {
		s.events.PublishUserRegistered(ctx, u.ID, u.Login, u.Email)
	}
	return nil
}

// Login verifies the password and, when the account has 2FA enabled, the
// second factor. With 2FA enabled and no token supplied it fails with
// ErrTwoFactorRequired and issues nothing.
func (s *AuthService) Login(ctx context.Context, login, password, totpToken string, meta RequestMeta) (TokenPair, error) {
	user, err := s.users.FindByLoginOrEmail(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !checkPassword(user, password) {
		return TokenPair{}, ErrInvalidCredentials
	}

	if user.TwoFactorEnabled {
		if strings.TrimSpace(totpToken) == "" {
			return TokenPair{}, ErrTwoFactorRequired
		}
		ok, err := s.twoFactor.VerifyToken(ctx, user.ID, totpToken)
		if err != nil {
			return TokenPair{}, err
		}
		if !ok {
			return TokenPair{}, ErrInvalidTwoFactorToken
		}
	}

	return s.establishSession(ctx, user, meta)
}

// Refresh rotates a refresh token: the presented token is atomically
// consumed and a new pair is issued. A second call with the same token
// observes ErrRefreshTokenInvalid, whoever wins the race.
func (s *AuthService) Refresh(ctx context.Context, oldRefreshToken string, meta RequestMeta) (TokenPair, error) {
	if strings.TrimSpace(oldRefreshToken) == "" {
		return TokenPair{}, ErrRefreshTokenMissing
	}
	claims, err := utils.VerifyToken(s.cfg.JWTSecret, oldRefreshToken)
	if err != nil {
		return TokenPair{}, ErrRefreshTokenInvalid
	}
	if err := s.sessions.ConsumeByRefreshToken(ctx, oldRefreshToken); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return TokenPair{}, ErrRefreshTokenInvalid
		}
		return TokenPair{}, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrRefreshTokenInvalid
		}
		return TokenPair{}, err
	}
	return s.issueSession(ctx, user, meta)
}

// Logout deletes the single session bound to the presented access token.
// Other sessions of the same user stay alive.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if _, err := utils.VerifyToken(s.cfg.JWTSecret, accessToken); err != nil {
		return ErrAccessTokenInvalid
	}
	return s.sessions.DeleteByAccessToken(ctx, accessToken)
}

// OAuthLogin handles the Google callback: replay-guard the authorization
// code, exchange it, then resolve or create the local account. The guard
// marker is dropped again when the provider exchange fails so a genuine
// retry with the same code is not locked out by our own failure.
func (s *AuthService) OAuthLogin(ctx context.Context, code string, meta RequestMeta) (TokenPair, error) {
	used, err := s.guard.IsUsed(ctx, code)
	if err != nil {
		return TokenPair{}, err
	}
	if used {
		return TokenPair{}, ErrReplayedAuthCode
	}
	if err := s.guard.MarkUsed(ctx, code, oauthCodeTTL); err != nil {
		if errors.Is(err, repository.ErrCodeAlreadyUsed) {
			return TokenPair{}, ErrReplayedAuthCode
		}
		return TokenPair{}, err
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		if relErr := s.guard.Release(ctx, code); relErr != nil {
			log.Printf("auth: release oauth code failed: %v", relErr)
		}
		return TokenPair{}, err
	}

	user, err := s.resolveOrCreate(ctx, profile)
	if err != nil {
		return TokenPair{}, err
	}
	return s.establishSession(ctx, user, meta)
}

// Me returns the account behind a verified access token's user id.
func (s *AuthService) Me(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrAccountNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

// resolveOrCreate maps a Google profile onto a local account: by linked
// Google id first, then by email (linking the id to that account), and
// finally by creating a fresh account under a synthesized unique login.
func (s *AuthService) resolveOrCreate(ctx context.Context, p GoogleProfile) (model.User, error) {
	if !p.VerifiedEmail {
		return model.User{}, ErrUnverifiedEmail
	}

	user, err := s.users.FindByGoogleID(ctx, p.GoogleID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	user, err = s.users.FindByEmail(ctx, p.Email)
	if err == nil {
		if linkErr := s.users.LinkGoogleID(ctx, user.ID, p.GoogleID, p.Picture); linkErr != nil {
			return model.User{}, linkErr
		}
		return s.users.FindByID(ctx, user.ID)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	login, err := s.uniqueLogin(ctx, p.Email)
	if err != nil {
		return model.User{}, err
	}
	fullName := p.DisplayName()
	if fullName == "" {
		fullName = login
	}
	created, err := s.users.CreateFederated(ctx, login, p.Email, fullName, p.Picture, p.GoogleID)
	if err != nil {
		return model.User{}, err
	}
	if s.events != nil {
		s.events.PublishUserRegistered(ctx, created.ID, created.Login, created.Email)
	}
	return created, nil
}

// uniqueLogin derives a login from the email local-part, appending an
// incrementing numeric suffix until it no longer collides.
func (s *AuthService) uniqueLogin(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := s.users.LoginExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(counter)
	}
}

// establishSession records the login time and issues a fresh token pair
// with its session row.
func (s *AuthService) establishSession(ctx context.Context, user model.User, meta RequestMeta) (TokenPair, error) {
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		log.Printf("auth: touch last login failed for %s: %v", user.ID, err)
	}
	return s.issueSession(ctx, user, meta)
}

func (s *AuthService) issueSession(ctx context.Context, user model.User, meta RequestMeta) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, user.ID, user.Login, s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.JWTSecret, user.ID, user.Login, s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	device := utils.ParseUserAgent(meta.UserAgent)
	if _, err := s.sessions.Create(ctx, user.ID, access.Token, refresh.Token, meta.IP, device, s.cfg.SessionTTLDays); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		AccessExp:    access.Exp,
		RefreshExp:   refresh.Exp,
		User:         user,
	}, nil
}

// checkPassword verifies a plain password against the account's credential.
// Federated-only accounts never pass a password check.
func checkPassword(user model.User, plain string) bool {
	local, ok := user.Auth.(model.LocalAuth)
	if !ok {
		return false
	}
	return utils.VerifyPassword(local.PasswordHash, plain)
}
