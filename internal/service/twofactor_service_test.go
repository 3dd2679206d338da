package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lordpluha/chronos/internal/utils"
)

type twoFactorFixture struct {
	svc    *TwoFactorService
	users  *fakeUserStore
	store  *fakeTwoFactorStore
	events *fakePublisher
	userID string
}

func newTwoFactorFixture(t *testing.T) *twoFactorFixture {
	t.Helper()
	users := newFakeUserStore()
	store := newFakeTwoFactorStore()
	events := &fakePublisher{}
	f := &authFixture{users: users}
	u := f.addLocalUser(t, "alice", "alice@example.com", "correct")
	return &twoFactorFixture{
		svc:    NewTwoFactorService(users, store, "Chronos", events),
		users:  users,
		store:  store,
		events: events,
		userID: u.ID,
	}
}

func (f *twoFactorFixture) currentCode(t *testing.T) string {
	t.Helper()
	rec, err := f.store.Find(context.Background(), f.userID)
	require.NoError(t, err)
	code, err := utils.TOTPCode(rec.Secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestSetupRequiresPassword(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetupReturnsSecretAndQRCode(t *testing.T) {
	f := newTwoFactorFixture(t)
	setup, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)

	assert.NotEmpty(t, setup.Secret)
	assert.Equal(t, setup.Secret, setup.ManualEntryKey)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))

	rec, err := f.store.Find(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, setup.Secret, rec.Secret)
	assert.False(t, rec.Enabled)
}

func TestSetupRotatesPendingSecret(t *testing.T) {
	f := newTwoFactorFixture(t)
	first, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	second, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	rec, err := f.store.Find(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, second.Secret, rec.Secret)
}

func TestEnableWithoutSetup(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Enable(context.Background(), f.userID, "123456", "correct")
	assert.ErrorIs(t, err, ErrTwoFactorNotConfigured)
}

func TestEnableRejectsInvalidCode(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)

	_, err = f.svc.Enable(context.Background(), f.userID, "000000", "correct")
	assert.ErrorIs(t, err, ErrInvalidTwoFactorToken)

	u, err := f.users.FindByID(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, u.TwoFactorEnabled)
}

func TestEnableReturnsBackupCodes(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)

	codes, err := f.svc.Enable(context.Background(), f.userID, f.currentCode(t), "correct")
	require.NoError(t, err)
	assert.Len(t, codes, 10)

	u, err := f.users.FindByID(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, u.TwoFactorEnabled)

	st, err := f.svc.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	assert.True(t, st.Configured)
	assert.Equal(t, 10, st.RemainingBackupCodes)
}

func TestVerifyTokenBeforeEnableFails(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)

	// Pending secret, not enabled yet: even a correct code must not pass.
	ok, err := f.svc.VerifyToken(context.Background(), f.userID, f.currentCode(t))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyTokenAcceptsAdjacentStep(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	_, err = f.svc.Enable(context.Background(), f.userID, f.currentCode(t), "correct")
	require.NoError(t, err)

	rec, err := f.store.Find(context.Background(), f.userID)
	require.NoError(t, err)
	prev, err := utils.TOTPCode(rec.Secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)

	ok, err := f.svc.VerifyToken(context.Background(), f.userID, prev)
	require.NoError(t, err)
	assert.True(t, ok, "one step of clock skew is tolerated")
}

func TestBackupCodeIsSingleUse(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	codes, err := f.svc.Enable(context.Background(), f.userID, f.currentCode(t), "correct")
	require.NoError(t, err)

	ok, err := f.svc.VerifyToken(context.Background(), f.userID, codes[3])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.VerifyToken(context.Background(), f.userID, codes[3])
	require.NoError(t, err)
	assert.False(t, ok, "a consumed backup code must never verify again")

	st, err := f.svc.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 9, st.RemainingBackupCodes)
}

func TestBackupCodeIsCaseInsensitive(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	codes, err := f.svc.Enable(context.Background(), f.userID, f.currentCode(t), "correct")
	require.NoError(t, err)

	ok, err := f.svc.VerifyToken(context.Background(), f.userID, " "+strings.ToLower(codes[0])+" ")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDisableClearsEverything(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	codes, err := f.svc.Enable(context.Background(), f.userID, f.currentCode(t), "correct")
	require.NoError(t, err)

	require.NoError(t, f.svc.Disable(context.Background(), f.userID, "correct"))

	u, err := f.users.FindByID(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, u.TwoFactorEnabled)

	st, err := f.svc.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.False(t, st.Configured)
	assert.Zero(t, st.RemainingBackupCodes)

	// Old backup codes are gone with the record.
	ok, err := f.svc.VerifyToken(context.Background(), f.userID, codes[0])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusUnconfigured(t *testing.T) {
	f := newTwoFactorFixture(t)
	st, err := f.svc.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.False(t, st.Configured)
	assert.Zero(t, st.RemainingBackupCodes)
}

func TestTwoFactorEventsPublished(t *testing.T) {
	f := newTwoFactorFixture(t)
	_, err := f.svc.Setup(context.Background(), f.userID, "correct")
	require.NoError(t, err)
	_, err = f.svc.Enable(context.Background(), f.userID, f.currentCode(t), "correct")
	require.NoError(t, err)
	require.NoError(t, f.svc.Disable(context.Background(), f.userID, "correct"))

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	require.Len(t, f.events.events, 2)
	assert.Equal(t, "2fa_enabled", f.events.events[0].kind)
	assert.Equal(t, "2fa_disabled", f.events.events[1].kind)
}
