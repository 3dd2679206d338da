package service

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/lordpluha/chronos/internal/model"
	"github.com/lordpluha/chronos/internal/repository"
	"github.com/lordpluha/chronos/internal/utils"
)

const (
	backupCodeCount = 10
	qrCodeSizePx    = 256
)

// timeNow is swapped out by tests exercising the TOTP step window.
var timeNow = time.Now

// TwoFactorSetup is returned from Setup: the secret for manual entry plus a
// QR code (PNG data URL) encoding the otpauth provisioning URI.
type TwoFactorSetup struct {
	Secret         string
	QRCode         string
	ManualEntryKey string
}

// TwoFactorService drives the per-user 2FA state machine:
//
//	not configured --Setup--> pending (secret stored, disabled)
//	pending --Enable--> enabled (backup codes generated)
//	enabled --Disable--> not configured (record deleted)
//
// Setup, Enable and Disable all require password re-confirmation; clients
// holding a stolen access token must not be able to change 2FA state.
type TwoFactorService struct {
	users  UserStore
	store  TwoFactorStore
	issuer string
	events EventPublisher
}

func NewTwoFactorService(users UserStore, store TwoFactorStore, issuer string, events EventPublisher) *TwoFactorService {
	return &TwoFactorService{users: users, store: store, issuer: issuer, events: events}
}

// Setup generates a fresh secret and stores it disabled. Re-running setup
// before enabling replaces the secret; running it while enabled rotates the
// pending secret without touching the enabled state until Enable confirms.
func (s *TwoFactorService) Setup(ctx context.Context, userID, password string) (TwoFactorSetup, error) {
	user, err := s.confirmPassword(ctx, userID, password)
	if err != nil {
		return TwoFactorSetup{}, err
	}

	secret, err := utils.GenerateTOTPSecret()
	if err != nil {
		return TwoFactorSetup{}, err
	}
	if err := s.store.UpsertSecret(ctx, userID, secret); err != nil {
		return TwoFactorSetup{}, err
	}

	uri := utils.ProvisioningURI(secret, user.Login, s.issuer)
	png, err := qrcode.Encode(uri, qrcode.Medium, qrCodeSizePx)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	return TwoFactorSetup{
		Secret:         secret,
		QRCode:         "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ManualEntryKey: secret,
	}, nil
}

// Enable turns 2FA on after the user proves they can produce a valid TOTP
// code for the stored secret. On success it returns the freshly generated
// single-use backup codes; this is the only time they are visible in plain.
func (s *TwoFactorService) Enable(ctx context.Context, userID, token, password string) ([]string, error) {
	if _, err := s.confirmPassword(ctx, userID, password); err != nil {
		return nil, err
	}

	rec, err := s.store.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTwoFactorNotConfigured
		}
		return nil, err
	}
	if !utils.VerifyTOTP(rec.Secret, token, timeNow()) {
		return nil, ErrInvalidTwoFactorToken
	}

	codes, err := utils.GenerateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = utils.HashBackupCode(c)
	}
	if err := s.store.Enable(ctx, userID, hashes); err != nil {
		return nil, err
	}
	if err := s.users.SetTwoFactorEnabled(ctx, userID, true); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.PublishSecurityAlert(ctx, userID, "2fa_enabled", "two-factor authentication enabled")
	}
	return codes, nil
}

// Disable deletes the whole 2FA record, secret and backup codes included.
func (s *TwoFactorService) Disable(ctx context.Context, userID, password string) error {
	if _, err := s.confirmPassword(ctx, userID, password); err != nil {
		return err
	}
	if err := s.users.SetTwoFactorEnabled(ctx, userID, false); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}
	if s.events != nil {
		s.events.PublishSecurityAlert(ctx, userID, "2fa_disabled", "two-factor authentication disabled")
	}
	return nil
}

// VerifyToken checks a login-time candidate: TOTP first (one step of skew
// either way), then the backup-code set. A matching backup code is
// atomically consumed so it can never succeed twice.
func (s *TwoFactorService) VerifyToken(ctx context.Context, userID, candidate string) (bool, error) {
	rec, err := s.store.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !rec.Enabled {
		return false, nil
	}
	if utils.VerifyTOTP(rec.Secret, candidate, timeNow()) {
		return true, nil
	}
	return s.store.ConsumeBackupCode(ctx, userID, utils.HashBackupCode(candidate))
}

// Status reports whether 2FA is configured/enabled and how many backup
// codes remain.
func (s *TwoFactorService) Status(ctx context.Context, userID string) (model.TwoFactorStatus, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TwoFactorStatus{}, ErrAccountNotFound
		}
		return model.TwoFactorStatus{}, err
	}

	st := model.TwoFactorStatus{Enabled: user.TwoFactorEnabled}
	_, err = s.store.Find(ctx, userID)
	switch {
	case err == nil:
		st.Configured = true
	case errors.Is(err, repository.ErrNotFound):
		return st, nil
	default:
		return model.TwoFactorStatus{}, err
	}

	st.RemainingBackupCodes, err = s.store.CountBackupCodes(ctx, userID)
	if err != nil {
		return model.TwoFactorStatus{}, err
	}
	return st, nil
}

// confirmPassword re-checks the account password for state-changing 2FA
// operations and returns the loaded user.
func (s *TwoFactorService) confirmPassword(ctx context.Context, userID, password string) (model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrAccountNotFound
		}
		return model.User{}, err
	}
	if !checkPassword(user, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return user, nil
}
