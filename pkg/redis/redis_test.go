package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/factorpool/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
			Prefix:  "factorpool",
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)

	assert.False(t, client.Enabled())
	assert.Equal(t, "factorpool", client.Prefix())
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	cache := NewCache(client, "test")
	ctx := context.Background()

	// When Redis is disabled, writes are dropped and reads miss
	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, TTLDaily))

	var dest map[string]int
	found, err := cache.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "k"))
}

func TestLock_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	lock := NewLock(client, "factor-update", "host-1", time.Minute)
	ctx := context.Background()

	assert.NoError(t, lock.Acquire(ctx))
	assert.NoError(t, lock.Acquire(ctx))
	assert.NoError(t, lock.Release(ctx))
}

// liveClient connects to REDIS_ADDR or skips the test
func liveClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromRedis(rdb, "factorpool-test")
}

func TestLock_ReleaseKeepsForeignOwner(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()

	holder := NewLock(client, "release-owner", "host-1", time.Minute)
	other := NewLock(client, "release-owner", "host-2", time.Minute)
	t.Cleanup(func() { _ = client.Redis().Del(ctx, holder.key).Err() })

	require.NoError(t, holder.Acquire(ctx))
	assert.ErrorIs(t, other.Acquire(ctx), ErrLockHeld)

	// A non-owner release leaves the key untouched
	require.NoError(t, other.Release(ctx))
	owner, err := client.Redis().Get(ctx, holder.key).Result()
	require.NoError(t, err)
	assert.Equal(t, "host-1", owner)

	require.NoError(t, holder.Release(ctx))
	exists, err := client.Redis().Exists(ctx, holder.key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	// Releasing an expired or missing lock is not an error
	assert.NoError(t, holder.Release(ctx))
	require.NoError(t, other.Acquire(ctx))
	require.NoError(t, other.Release(ctx))
}

func TestFactorRunKey(t *testing.T) {
	assert.Equal(t, "factor:run:momentum", FactorRunKey("momentum"))
}
