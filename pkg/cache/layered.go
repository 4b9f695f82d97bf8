package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through a short-lived memory layer in front of Redis.
// Writes go to Redis first; the memory copy never outlives the Redis TTL.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Store
	l1TTL time.Duration
}

// NewLayeredCache keeps up to size entries in memory for at most l1TTL.
func NewLayeredCache(l2 Store, size int, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{
		l1:    NewMemoryCache(WithMemoryMaxSize(size), WithMemoryDefaultTTL(l1TTL)),
		l2:    l2,
		l1TTL: l1TTL,
	}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.l1.Set(ctx, key, value, c.memTTL(ttl))
}

func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := c.l1.Get(ctx, key); err == nil {
		return b, nil
	}
	b, err := c.l2.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, ErrMiss
		}
		return nil, err
	}
	_ = c.l1.Set(ctx, key, b, c.l1TTL)
	return b, nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.l1.Delete(ctx, keys...)
	return c.l2.Delete(ctx, keys...)
}

// Close stops the memory layer only; the Redis connection is shared.
func (c *LayeredCache) Close() error {
	return c.l1.Close()
}

func (c *LayeredCache) memTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < c.l1TTL {
		return ttl
	}
	return c.l1TTL
}
