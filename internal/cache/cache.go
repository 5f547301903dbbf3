package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or caching is disabled.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-encoded values under a key prefix. A nil redis client
// turns every call into a no-op miss.
type Cache[T any] struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCache[T any](rc *redis.Client, prefix string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{rc: rc, prefix: prefix, ttl: ttl}
}

// NewRedisClient parses a redis:// URL. An empty URL disables caching.
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *Cache[T]) key(id string) string {
	return c.prefix + ":" + id
}

func (c *Cache[T]) Get(ctx context.Context, id string) (*T, error) {
	if c == nil || c.rc == nil {
		return nil, ErrMiss
	}

	raw, err := c.rc.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &v, nil
}

func (c *Cache[T]) Set(ctx context.Context, id string, v *T) error {
	if c == nil || c.rc == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.rc.Set(ctx, c.key(id), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (c *Cache[T]) Delete(ctx context.Context, id string) error {
	if c == nil || c.rc == nil {
		return nil
	}
	if err := c.rc.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}
