// ABOUTME: Tests for the Redis embedding cache and index lock using miniredis
// ABOUTME: Covers TTL expiry, key derivation and lock contention against miniredis
package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewClient(ctx, Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewEmbeddingCache(client, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "nomic", "hello")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "nomic", "hello", []float64{0.5, 0.25}))

	vec, ok, err := cache.Get(ctx, "nomic", "hello")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.25}, vec)

	// keys are model-scoped
	_, ok, _ = cache.Get(ctx, "other-model", "hello")
	assert.False(t, ok)

	mr.FastForward(2 * time.Hour)
	_, ok, _ = cache.Get(ctx, "nomic", "hello")
	assert.False(t, ok, "entry should expire")
}

func TestEmbeddingCache_CorruptEntry(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewEmbeddingCache(client, 0)
	require.NoError(t, mr.Set(Key("m", "t"), "not-json"))

	_, _, err := cache.Get(context.Background(), "m", "t")
	assert.Error(t, err)
}

func TestKey_Stable(t *testing.T) {
	assert.Equal(t, Key("m", "abc"), Key("m", "abc"))
	assert.NotEqual(t, Key("m", "abc"), Key("m", "abd"))
	assert.Contains(t, Key("m", "abc"), "repoagent:emb:m:")
}

func TestIndexLock_Exclusive(t *testing.T) {
	_, client := newTestClient(t)
	lock := NewIndexLock(client, time.Minute, 1)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "code")
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "code")
	assert.ErrorIs(t, err, ErrLocked)

	// other collections are independent
	releaseOther, err := lock.Acquire(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, releaseOther(ctx))

	require.NoError(t, release(ctx))

	release, err = lock.Acquire(ctx, "code")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestLockRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1600 * time.Millisecond},
		{6, lockRetryMax},
		{40, lockRetryMax},
	}
	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			got := lockRetryDelay(tt.attempt)
			assert.GreaterOrEqual(t, got, tt.want*3/4, "attempt %d", tt.attempt)
			assert.LessOrEqual(t, got, tt.want*5/4, "attempt %d", tt.attempt)
		}
	}
	assert.Equal(t, lockRetryBase, lockRetryDelay(0))
	assert.Equal(t, lockRetryBase, lockRetryDelay(-3))
}

func TestLockRetryDelay_EightTriesBudget(t *testing.T) {
	// eight attempts wait seven times
	var total time.Duration
	for n := 1; n < 8; n++ {
		total += lockRetryDelay(n)
	}
	assert.Less(t, total, 9*time.Second)
	assert.Greater(t, total, 5*time.Second)
}
