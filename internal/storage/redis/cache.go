// ABOUTME: Redis-backed embedding cache keyed by model and a hash of the input text
// ABOUTME: Satisfies llm.EmbeddingCache so repeated index runs skip unchanged chunks
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	embeddingPrefix   = "repoagent:emb:"
	defaultExpiration = 24 * time.Hour
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a client and verifies the server answers
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// EmbeddingCache stores vectors as JSON with an expiry
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache creates a cache. A non-positive ttl uses 24h.
func NewEmbeddingCache(client *redis.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = defaultExpiration
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

// Key returns the cache key for model and text
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector, reporting false on a miss
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float64, bool, error) {
	data, err := c.client.Get(ctx, Key(model, text)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding from redis: %w", err)
	}

	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return vec, true, nil
}

// Set stores vector under model and text
func (c *EmbeddingCache) Set(ctx context.Context, model, text string, vector []float64) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	if err := c.client.Set(ctx, Key(model, text), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding in redis: %w", err)
	}
	return nil
}
