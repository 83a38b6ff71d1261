// ABOUTME: Distributed lock serialising index runs into the same collection
// ABOUTME: Built on redsync; acquisition retries use jittered exponential backoff
package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "repoagent:index:"

// Acquisition pacing: the delay doubles per attempt from lockRetryBase up to
// lockRetryMax, with up to 25% jitter either way.
const (
	lockRetryBase = 50 * time.Millisecond
	lockRetryMax  = 2 * time.Second
)

// ErrLocked is returned when another run holds the lock
var ErrLocked = errors.New("another index run holds the lock")

// IndexLock hands out per-collection mutexes
type IndexLock struct {
	client *redis.Client
	rs     *redsync.Redsync
	ttl    time.Duration
	tries  int
}

// NewIndexLock creates a lock factory. tries bounds acquisition attempts.
func NewIndexLock(client *redis.Client, ttl time.Duration, tries int) *IndexLock {
	if tries <= 0 {
		tries = 1
	}
	return &IndexLock{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		tries:  tries,
	}
}

// Acquire locks collection and returns the matching release function
func (l *IndexLock) Acquire(ctx context.Context, collection string) (func(context.Context) error, error) {
	key := lockPrefix + collection
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(l.tries),
		redsync.WithRetryDelayFunc(lockRetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, collection)
		}
		if n, existsErr := l.client.Exists(ctx, key).Result(); existsErr == nil && n > 0 {
			return nil, fmt.Errorf("%w: %s", ErrLocked, collection)
		}
		return nil, fmt.Errorf("failed to acquire index lock: %w", err)
	}

	release := func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("failed to release index lock: %w", err)
		}
		return nil
	}
	return release, nil
}

// lockRetryDelay is the wait before acquisition attempt n
func lockRetryDelay(n int) time.Duration {
	if n <= 0 {
		return lockRetryBase
	}
	delay := lockRetryMax
	if n < 6 {
		delay = min(lockRetryBase<<n, lockRetryMax)
	}
	jitter := time.Duration(rand.Int64N(int64(delay)/2)) - delay/4
	return delay + jitter
}
