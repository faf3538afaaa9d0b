package jobs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when REDIS_ADDR is set.
func TestRedisLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	key := "equiprent:test:sweep-lock:" + uuid.NewString()
	defer client.Del(ctx, key)

	first := NewRedisLock(client, key)
	second := NewRedisLock(client, key)

	token, ok, err := first.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A stale token must not free the lock.
	require.NoError(t, second.Release(ctx, "not-the-owner"))
	_, ok, _ = second.Acquire(ctx, time.Minute)
	assert.False(t, ok)

	require.NoError(t, first.Release(ctx, token))
	_, ok, err = second.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
