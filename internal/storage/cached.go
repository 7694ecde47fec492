package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 64

// CachedKV keeps recently used slots of a durable backend in an LRU so that
// repeated ledger loads skip the round trip. Writes go to the backend first and
// only then to the cache.
type CachedKV struct {
	backend KeyValue
	cache   *lru.Cache[string, string]
	size    int
}

func NewCachedKV(backend KeyValue, size int) (*CachedKV, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedKV{backend: backend, cache: cache, size: size}, nil
}

func (c *CachedKV) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, true, nil
	}
	v, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	c.cache.Add(key, v)
	return v, true, nil
}

func (c *CachedKV) Set(ctx context.Context, key, value string) error {
	if err := c.backend.Set(ctx, key, value); err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, value)
	return nil
}

func (c *CachedKV) Remove(ctx context.Context, key string) error {
	c.cache.Remove(key)
	return c.backend.Remove(ctx, key)
}

func (c *CachedKV) Close() error {
	c.cache.Purge()
	return c.backend.Close()
}

func (c *CachedKV) Durable() bool { return IsDurable(c.backend) }

// GetStats returns statistics for monitoring.
func (c *CachedKV) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"cached_slots":   c.cache.Len(),
		"cache_capacity": c.size,
		"durable":        c.Durable(),
	}
}
