package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/logger"
	"modelgate/services/catalog-api/internal/infrastructure/metrics"
)

const (
	KeyFullCatalog  = "catalog:full"
	KeyUniqueModels = "catalog:unique_models"
	KeyStats        = "catalog:stats"

	keyProviderPrefix = "catalog:provider:"
	lockSuffix        = ":rebuild"
	rebuildLockTTL    = 30 * time.Second
)

func KeyProvider(slug string) string {
	return keyProviderPrefix + slug
}

// CatalogCache is the read-through cache in front of the catalog store.
// Every cached view is rebuilt under a per-key named lock with a second
// cache check inside the critical section, so a burst of concurrent misses
// costs one store query.
type CatalogCache struct {
	kv      KV
	locker  Locker
	service *catalog.CatalogService
	ttl     time.Duration
}

func NewCatalogCache(kv KV, locker Locker, service *catalog.CatalogService, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CatalogCache{kv: kv, locker: locker, service: service, ttl: ttl}
}

func (c *CatalogCache) FullCatalog(ctx context.Context) ([]catalog.ModelView, error) {
	return getOrRebuild(ctx, c, KeyFullCatalog, c.service.FullCatalog)
}

func (c *CatalogCache) ProviderCatalog(ctx context.Context, slug string) ([]catalog.ModelView, error) {
	return getOrRebuild(ctx, c, KeyProvider(slug), func(ctx context.Context) ([]catalog.ModelView, error) {
		return c.service.ProviderCatalog(ctx, slug)
	})
}

func (c *CatalogCache) UniqueModelIDs(ctx context.Context) ([]string, error) {
	return getOrRebuild(ctx, c, KeyUniqueModels, c.service.UniqueModelIDs)
}

func (c *CatalogCache) Stats(ctx context.Context) (*catalog.CatalogStats, error) {
	return getOrRebuild(ctx, c, KeyStats, c.service.Stats)
}

// InvalidateProvider drops the provider-scoped entry. With cascade it also
// drops every aggregate view derived from that provider's rows.
func (c *CatalogCache) InvalidateProvider(ctx context.Context, slug string, cascade bool) error {
	keys := []string{KeyProvider(slug)}
	if cascade {
		keys = append(keys, KeyFullCatalog, KeyUniqueModels, KeyStats)
	}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		metrics.RecordCacheOperation("delete", "error")
		return err
	}
	metrics.RecordCacheOperation("delete", "ok")
	return nil
}

// InvalidateGlobal drops the aggregate views once, regardless of how many
// providers were written. Batch callers drop their own provider entries.
func (c *CatalogCache) InvalidateGlobal(ctx context.Context) error {
	if err := c.kv.Delete(ctx, KeyFullCatalog, KeyUniqueModels, KeyStats); err != nil {
		metrics.RecordCacheOperation("delete", "error")
		return err
	}
	metrics.RecordCacheOperation("delete", "ok")
	return nil
}

func (c *CatalogCache) HealthCheck(ctx context.Context) error {
	return c.kv.HealthCheck(ctx)
}

// getOrRebuild is the double-checked read path. Cache infrastructure failures
// never fail a read: they degrade to querying the store directly.
func getOrRebuild[T any](ctx context.Context, c *CatalogCache, key string, build func(context.Context) (T, error)) (T, error) {
	log := logger.GetLogger()

	if cached, ok := getCached[T](ctx, c, key); ok {
		metrics.RecordCacheOperation("get", "hit")
		return cached, nil
	}
	metrics.RecordCacheOperation("get", "miss")

	var out T
	var buildErr error
	lockErr := c.locker.WithLock(ctx, key+lockSuffix, rebuildLockTTL, func() error {
		// Another rebuilder may have filled the key while we waited.
		if cached, ok := getCached[T](ctx, c, key); ok {
			out = cached
			return nil
		}

		built, err := build(ctx)
		if err != nil {
			buildErr = err
			return err
		}
		metrics.RecordCacheRebuild(key)

		if payload, err := json.Marshal(built); err == nil {
			if err := c.kv.Set(ctx, key, string(payload), c.ttl); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to store rebuilt cache entry")
				metrics.RecordCacheOperation("set", "error")
			} else {
				metrics.RecordCacheOperation("set", "ok")
			}
		}

		out = built
		return nil
	})
	if lockErr == nil {
		return out, nil
	}

	// A build failure inside the lock is terminal and returned as is. Only a
	// lock acquisition failure (redis down, context cancelled mid-wait)
	// degrades to an unprotected store read.
	var zero T
	if buildErr != nil {
		return zero, buildErr
	}
	built, err := build(ctx)
	if err != nil {
		return zero, err
	}
	log.Warn().Err(lockErr).Str("key", key).Msg("rebuild lock unavailable, served store read without caching")
	return built, nil
}

func getCached[T any](ctx context.Context, c *CatalogCache, key string) (T, bool) {
	var out T
	val, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log := logger.GetLogger()
			log.Warn().Err(err).Str("key", key).Msg("cache read failed")
			metrics.RecordCacheOperation("get", "error")
		}
		return out, false
	}
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		log := logger.GetLogger()
		log.Warn().Err(err).Str("key", key).Msg("failed to decode cached entry, treating as miss")
		return out, false
	}
	return out, true
}
