package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthCodeStore is the replay guard for OAuth authorization codes. A code
// is recorded the instant it is first seen and the marker self-expires, so
// the set never grows beyond the provider's own code lifetime. Codes are
// keyed by digest to bound key length.
type OAuthCodeStore struct {
	rdb    *redis.Client
	prefix string
}

func NewOAuthCodeStore(rdb *redis.Client) *OAuthCodeStore {
	return &OAuthCodeStore{rdb: rdb, prefix: "oauth:code:"}
}

// IsUsed reports whether the code has been consumed already.
func (s *OAuthCodeStore) IsUsed(ctx context.Context, code string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(code)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkUsed records the code with the given TTL. The SETNX write is the
// atomic gate: when the key already exists the second caller gets
// ErrCodeAlreadyUsed, so two callbacks racing on the same code cannot both
// proceed. Contention is a replay, not a success.
func (s *OAuthCodeStore) MarkUsed(ctx context.Context, code string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, s.key(code), 1, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeAlreadyUsed
	}
	return nil
}

// Release drops the marker so a code can be retried. Used only when the
// provider exchange fails after the code was marked, matching the
// mark-early / unmark-on-failure callback flow.
func (s *OAuthCodeStore) Release(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, s.key(code)).Err()
}

func (s *OAuthCodeStore) key(code string) string {
	sum := sha256.Sum256([]byte(code))
	return s.prefix + hex.EncodeToString(sum[:])
}
