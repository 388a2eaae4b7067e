package store

import (
	"context"
	"time"

	"tally/internal/cache"
)

// CachedKV is a read-through cache in front of a KV. Puts write through and
// refresh the cached copy. Writes made by other processes become visible once
// the entry expires.
type CachedKV struct {
	next  KV
	cache *cache.LRU[string, []byte]
}

var _ KV = (*CachedKV)(nil)

// Cached wraps next with an LRU of size entries that expire after ttl.
func Cached(next KV, size int, ttl time.Duration) *CachedKV {
	return &CachedKV{next: next, cache: cache.NewLRU[string, []byte](size, ttl)}
}

// Cache exposes the underlying LRU so it can be registered with a janitor.
func (c *CachedKV) Cache() *cache.LRU[string, []byte] {
	return c.cache
}

func (c *CachedKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return clone(v), true, nil
	}
	v, found, err := c.next.Get(ctx, key)
	if err != nil || !found {
		return v, found, err
	}
	c.cache.Set(key, clone(v))
	return v, true, nil
}

func (c *CachedKV) Put(ctx context.Context, key string, value []byte) error {
	c.cache.Delete(key)
	if err := c.next.Put(ctx, key, value); err != nil {
		return err
	}
	c.cache.Set(key, clone(value))
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
