package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*OAuthCodeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOAuthCodeStore(rdb), mr
}

func TestMarkUsedOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	used, err := store.IsUsed(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, store.MarkUsed(ctx, "code-1", time.Minute))

	used, err = store.IsUsed(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, used)

	err = store.MarkUsed(ctx, "code-1", time.Minute)
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)

	// A different code is unaffected.
	require.NoError(t, store.MarkUsed(ctx, "code-2", time.Minute))
}

func TestMarkUsedConcurrentSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 16
	start := make(chan struct{})
	results := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			results <- store.MarkUsed(ctx, "contended-code", time.Minute)
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrCodeAlreadyUsed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMarkerExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkUsed(ctx, "code-1", 10*time.Minute))
	mr.FastForward(10*time.Minute + time.Second)

	used, err := store.IsUsed(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, used)

	// After expiry the code would mark again; the provider's own code
	// lifetime is shorter than the marker TTL, so this is unreachable in
	// practice but must not error.
	require.NoError(t, store.MarkUsed(ctx, "code-1", 10*time.Minute))
}

func TestReleaseAllowsRetry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkUsed(ctx, "code-1", time.Minute))
	require.NoError(t, store.Release(ctx, "code-1"))

	used, err := store.IsUsed(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, used)
	require.NoError(t, store.MarkUsed(ctx, "code-1", time.Minute))
}
