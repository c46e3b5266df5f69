package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// RedisCache is a Cache shared across processes. Redis enforces the TTL, so
// there is nothing to sweep. Failures are logged and degrade to a miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a cache backed by client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Get returns the plan stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (*types.Plan, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Roadmap cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var plan types.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		c.logger.Warn("Discarding undecodable roadmap cache entry", "key", key, "error", err)
		return nil, false
	}
	return &plan, true
}

// Put stores plan under key with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key string, plan *types.Plan) {
	if plan == nil {
		return
	}

	data, err := json.Marshal(plan)
	if err != nil {
		c.logger.Warn("Failed to encode roadmap for cache", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Roadmap cache write failed", "key", key, "error", err)
	}
}
