//go:build integration
// +build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *RedisCache {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Skipf("Skipping integration test: could not connect to redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, time.Minute, nil)
}

func TestRedisCache_Integration(t *testing.T) {
	c := setupTestRedis(t)
	ctx := context.Background()
	key := KeyPrefix + "it|" + uuid.NewString()

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Put(ctx, key, samplePlan())
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, samplePlan(), got)

	ttl, err := c.client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, c.client.Del(ctx, key).Err())
}
