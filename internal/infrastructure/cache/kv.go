package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by KV.Get when the key is absent. A miss is a
// normal condition in the cache-aside pattern, not a failure.
var ErrCacheMiss = errors.New("cache: key not found")

// KV is the key-value surface the catalog cache is built on. The redis
// implementation backs production; an in-memory one backs tests and
// single-node dev setups without redis.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Locker serializes rebuilds of a cache key across processes. Lock names are
// derived from cache keys so rebuilds of different keys never contend.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error
}
