package cache

import (
	"context"
	"time"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 30 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// Cache is a minimal expiring key-value contract. Used for fraud velocity
// counters and short-lived provider status lookups; never a source of truth.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	Increment(ctx context.Context, key string, delta int64, expiration time.Duration) int64
}
