package cache

import (
	"context"
	"fmt"
	"time"

	"cvcraft/internal/config"
	"cvcraft/internal/errors"
)

const pingTimeout = 2 * time.Second

// New builds the configured cache. It returns nil when caching is disabled.
func New(ctx context.Context, cfg config.CacheConfig, logger *errors.Logger) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "", config.CacheBackendMemory:
		return NewMemoryCache(cfg.MaxEntries), nil
	case config.CacheBackendRedis:
		client, err := NewRedisClient(RedisOptions{
			URL:      cfg.Redis.URL,
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid redis cache configuration", err)
		}

		rc := NewRedisCache(client)
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil && logger != nil {
			// Unreachable Redis is not fatal; lookups fall through as misses.
			logger.LogError(errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "redis cache is not reachable", err),
				"Starting with an unreachable cache", "backend", config.CacheBackendRedis)
		}
		return NewBreakerCache(rc, cfg.CircuitBreaker, logger), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, fmt.Sprintf("unsupported cache backend: %s", cfg.Backend), nil)
	}
}
