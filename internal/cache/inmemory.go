package cache

import (
	"context"
	"sync"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache *goCache.Cache
	mu    sync.Mutex
}

// NewInMemoryCache creates a new InMemoryCache instance
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		cache: goCache.New(DefaultExpiration, DefaultCleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

// Increment atomically adds delta to a counter, creating it with the given
// expiration if absent, and returns the new value. The expiration of an
// existing counter is not extended so trailing windows stay trailing.
func (c *InMemoryCache) Increment(_ context.Context, key string, delta int64, expiration time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.cache.Get(key); !found {
		c.cache.Set(key, delta, expiration)
		return delta
	}
	v, err := c.cache.IncrementInt64(key, delta)
	if err != nil {
		c.cache.Set(key, delta, expiration)
		return delta
	}
	return v
}
