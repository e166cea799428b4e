// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// minGenerationTTL bounds how long an idle user's generation counter is kept.
const minGenerationTTL = 24 * time.Hour

// RedisCache stores JSON values in Redis with a fixed TTL.
type RedisCache struct {
	rdb           *redis.Client
	ttl           time.Duration
	generationTTL time.Duration
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	generationTTL := minGenerationTTL
	if 2*ttl > generationTTL {
		generationTTL = 2 * ttl
	}
	return &RedisCache{rdb: rdb, ttl: ttl, generationTTL: generationTTL}
}

// Get retrieves a value and unmarshals it into dest.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Generation reads the counter at key.
func (c *RedisCache) Generation(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Bump increments the counter at key. The counter outlives every entry written
// under it, so an expired counter never resurrects an old generation's entries.
func (c *RedisCache) Bump(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, c.generationTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to bump %s: %w", key, err)
	}
	return incr.Val(), nil
}
