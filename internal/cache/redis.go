package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions selects a Redis server either by URL or by address.
type RedisOptions struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a client from a redis:// or rediss:// URL when one is
// given, otherwise from the plain address.
func NewRedisClient(opts RedisOptions) (*redis.Client, error) {
	target := opts.URL
	if target == "" {
		target = opts.Addr
	}
	if target == "" {
		return nil, errors.New("redis url or address is required")
	}

	if strings.HasPrefix(target, "redis://") || strings.HasPrefix(target, "rediss://") {
		parsed, err := redis.ParseURL(target)
		if err != nil {
			return nil, err
		}
		if opts.Password != "" {
			parsed.Password = opts.Password
		}
		return redis.NewClient(parsed), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     target,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

// RedisCommander is the subset of the go-redis client the cache uses.
type RedisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

type RedisCache struct {
	rdb RedisCommander
}

func NewRedisCache(rdb RedisCommander) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		// corrupt entry: drop it and report a miss
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Backend() string {
	return "redis"
}
