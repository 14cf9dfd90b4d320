package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a reverse geocoded place stays in Redis.
const DefaultTTL = 24 * time.Hour

// RedisCache stores places as JSON strings in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis returns a client for addr, or nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedisCache wraps client. A non-positive ttl falls back to DefaultTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Ping checks that the Redis server is reachable.
func (rc *RedisCache) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Get returns the cached place for key. A missing key is reported as (nil, false, nil).
func (rc *RedisCache) Get(ctx context.Context, key string) (*models.Place, bool, error) {
	raw, err := rc.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	var place models.Place
	if err = json.Unmarshal([]byte(raw), &place); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached place: %w", err)
	}

	return &place, true, nil
}

// Set stores place under key with the configured TTL.
func (rc *RedisCache) Set(ctx context.Context, key string, place *models.Place) error {
	payload, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("failed to encode place: %w", err)
	}

	if err = rc.client.Set(ctx, key, payload, rc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}

	return nil
}

// Close releases the underlying client.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
