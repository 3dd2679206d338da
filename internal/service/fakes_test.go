package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lordpluha/chronos/internal/model"
	"github.com/lordpluha/chronos/internal/repository"
	"github.com/lordpluha/chronos/internal/utils"
)

// In-memory store fakes. They mirror the atomicity contracts of the real
// repositories: consume operations hold the lock across check and delete.

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*model.User // by id
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) add(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if u.ID == "" {
		u.ID = "u" + strconv.Itoa(f.nextID)
	}
	cp := u
	f.users[cp.ID] = &cp
	return &cp
}

func (f *fakeUserStore) Create(_ context.Context, login, email, fullName, passwordHash string) (model.User, error) {
	f.mu.Lock()
	for _, u := range f.users {
		if u.Login == login || u.Email == email {
			f.mu.Unlock()
			return model.User{}, repository.ErrUserExists
		}
	}
	f.mu.Unlock()
	u := f.add(model.User{Login: login, Email: email, FullName: fullName,
		Auth: model.LocalAuth{PasswordHash: passwordHash}})
	return *u, nil
}

func (f *fakeUserStore) CreateFederated(_ context.Context, login, email, fullName, avatar, googleID string) (model.User, error) {
	u := f.add(model.User{Login: login, Email: email, FullName: fullName, Avatar: avatar,
		IsEmailVerified: true, Auth: model.FederatedAuth{GoogleID: googleID}})
	return *u, nil
}

func (f *fakeUserStore) FindByLoginOrEmail(_ context.Context, identifier string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == identifier || u.Email == identifier {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) FindByGoogleID(_ context.Context, googleID string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GoogleID() == googleID {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) LoginExists(_ context.Context, login string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) LinkGoogleID(_ context.Context, userID, googleID, avatar string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	local, _ := u.Auth.(model.LocalAuth)
	local.GoogleID = googleID
	u.Auth = local
	if avatar != "" {
		u.Avatar = avatar
	}
	u.IsEmailVerified = true
	return nil
}

func (f *fakeUserStore) SetTwoFactorEnabled(_ context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		u.TwoFactorEnabled = enabled
		return nil
	}
	return repository.ErrNotFound
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		now := time.Now().UTC()
		u.LastLoginAt = &now
	}
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session // by refresh token
	nextID   int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]model.Session{}}
}

func (f *fakeSessionStore) Create(_ context.Context, userID, accessToken, refreshToken, ip string, device utils.DeviceInfo, ttlDays int) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := model.Session{
		ID:           "s" + strconv.Itoa(f.nextID),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IPAddress:    ip,
		UserAgent:    device.UserAgent,
		Device:       device.Title,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
		CreatedAt:    time.Now().UTC(),
	}
	f.sessions[refreshToken] = s
	return s, nil
}

func (f *fakeSessionStore) FindByRefreshToken(_ context.Context, token string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[token]; ok {
		return s, nil
	}
	return model.Session{}, repository.ErrSessionNotFound
}

func (f *fakeSessionStore) FindByAccessToken(_ context.Context, token string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.AccessToken == token {
			return s, nil
		}
	}
	return model.Session{}, repository.ErrSessionNotFound
}

// ConsumeByRefreshToken checks and deletes under one lock, matching the
// single conditional DELETE of the MySQL store.
func (f *fakeSessionStore) ConsumeByRefreshToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[token]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionStore) DeleteByAccessToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for rt, s := range f.sessions {
		if s.AccessToken == token {
			delete(f.sessions, rt)
			return nil
		}
	}
	return nil
}

func (f *fakeSessionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeTwoFactorStore struct {
	mu      sync.Mutex
	records map[string]model.TwoFactorRecord
	codes   map[string]map[string]bool // userID -> code hash set
}

func newFakeTwoFactorStore() *fakeTwoFactorStore {
	return &fakeTwoFactorStore{
		records: map[string]model.TwoFactorRecord{},
		codes:   map[string]map[string]bool{},
	}
}

func (f *fakeTwoFactorStore) UpsertSecret(_ context.Context, userID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[userID] = model.TwoFactorRecord{UserID: userID, Secret: secret}
	return nil
}

func (f *fakeTwoFactorStore) Find(_ context.Context, userID string) (model.TwoFactorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[userID]; ok {
		return r, nil
	}
	return model.TwoFactorRecord{}, repository.ErrNotFound
}

func (f *fakeTwoFactorStore) Enable(_ context.Context, userID string, codeHashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[userID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	r.Enabled = true
	r.EnabledAt = &now
	f.records[userID] = r
	set := map[string]bool{}
	for _, h := range codeHashes {
		set[h] = true
	}
	f.codes[userID] = set
	return nil
}

func (f *fakeTwoFactorStore) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, userID)
	delete(f.codes, userID)
	return nil
}

func (f *fakeTwoFactorStore) ConsumeBackupCode(_ context.Context, userID, codeHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.codes[userID]
	if set == nil || !set[codeHash] {
		return false, nil
	}
	delete(set, codeHash)
	return true, nil
}

func (f *fakeTwoFactorStore) CountBackupCodes(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes[userID]), nil
}

type fakeReplayGuard struct {
	mu   sync.Mutex
	used map[string]bool
}

func newFakeReplayGuard() *fakeReplayGuard {
	return &fakeReplayGuard{used: map[string]bool{}}
}

func (f *fakeReplayGuard) IsUsed(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used[code], nil
}

func (f *fakeReplayGuard) MarkUsed(_ context.Context, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.used[code] {
		return repository.ErrCodeAlreadyUsed
	}
	f.used[code] = true
	return nil
}

func (f *fakeReplayGuard) Release(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.used, code)
	return nil
}

type fakeGoogle struct {
	profile GoogleProfile
	err     error
	calls   int
}

func (f *fakeGoogle) Exchange(_ context.Context, _ string) (GoogleProfile, error) {
	f.calls++
	if f.err != nil {
		return GoogleProfile{}, f.err
	}
	return f.profile, nil
}

type recordedEvent struct {
	queue string
	kind  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) PublishUserRegistered(_ context.Context, _, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{queue: "registered"})
}

func (f *fakePublisher) PublishSecurityAlert(_ context.Context, _, kind, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{queue: "security", kind: kind})
}
