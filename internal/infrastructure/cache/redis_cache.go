package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modelgate/services/catalog-api/internal/infrastructure/logger"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	opts, err := buildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	log := logger.GetLogger()
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		log.Warn().Msg("ignoring non-zero DB when using redis cluster configuration")
		opts.DB = 0
	}

	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Msg("connected to redis cache")
	return &RedisCache{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
	}, nil
}

func buildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	parts := strings.Split(raw, ",")
	opts := &redis.UniversalOptions{}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "://") {
			parsed, err := redis.ParseURL(part)
			if err != nil {
				return nil, err
			}

			opts.Addrs = append(opts.Addrs, parsed.Addr)

			if opts.Username == "" {
				opts.Username = parsed.Username
			}
			if opts.Password == "" {
				opts.Password = parsed.Password
			}
			if opts.DB == 0 {
				opts.DB = parsed.DB
			}
			if opts.TLSConfig == nil {
				opts.TLSConfig = parsed.TLSConfig
			}
			if opts.ReadTimeout == 0 {
				opts.ReadTimeout = parsed.ReadTimeout
			}
			if opts.WriteTimeout == 0 {
				opts.WriteTimeout = parsed.WriteTimeout
			}
			if opts.DialTimeout == 0 {
				opts.DialTimeout = parsed.DialTimeout
			}
			if opts.PoolSize == 0 {
				opts.PoolSize = parsed.PoolSize
			}
		} else {
			opts.Addrs = append(opts.Addrs, part)
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no redis addresses provided")
	}

	return opts, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get value from cache: %w", err)
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Unlink(ctx, keys...).Err()
}

func (r *RedisCache) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// WithLock runs fn while holding a named distributed mutex. The expiry bounds
// how long a crashed holder can block other rebuilders.
func (r *RedisCache) WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error {
	mutex := r.rs.NewMutex(name, redsync.WithExpiry(ttl))

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	defer func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			log := logger.GetLogger()
			log.Error().Err(err).Str("lock", name).Msg("failed to unlock mutex")
		}
	}()

	return fn()
}
