package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bvilove/datebot/internal/cache"
	"github.com/bvilove/datebot/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestAcquireLock(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)
	key := c.KeyForMatchLock(42)

	release, err := c.AcquireLock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	// second acquire while held
	_, err = c.AcquireLock(ctx, key, 5*time.Second)
	assert.ErrorIs(t, err, cache.ErrLockHeld)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(key))

	// free again
	release, err = c.AcquireLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestAcquireLock_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)
	key := c.KeyForMatchLock(7)

	staleRelease, err := c.AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	freshRelease, err := c.AcquireLock(ctx, key, time.Second)
	require.NoError(t, err)

	// old holder must not drop the new lock
	require.NoError(t, staleRelease(ctx))
	assert.True(t, mr.Exists(key))

	require.NoError(t, freshRelease(ctx))
	assert.False(t, mr.Exists(key))
}

func TestIncomingLikesCounter(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, ok, err := c.GetIncomingLikes(ctx, 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetIncomingLikes(ctx, 1, 3, time.Minute))

	n, ok, err := c.GetIncomingLikes(ctx, 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
	// access refreshes TTL
	assert.Equal(t, time.Hour, mr.TTL(c.KeyForIncomingLikes(1)))

	require.NoError(t, c.InvalidateIncomingLikes(ctx, 1))
	_, ok, err = c.GetIncomingLikes(ctx, 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}
