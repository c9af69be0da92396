package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, window time.Duration, ceiling int64) (*Limiter, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, window, ceiling), srv
}

func TestAllowWithinCeiling(t *testing.T) {
	limiter, _ := setupLimiter(t, time.Minute, 100)
	ctx := context.Background()

	for i := int64(1); i <= 100; i++ {
		allowed, count, err := limiter.Allow(ctx, "user-1", "feature-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d must pass", i)
		assert.Equal(t, i, count)
	}

	allowed, count, err := limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.False(t, allowed, "request 101 must be rejected")
	assert.Equal(t, int64(101), count)
}

func TestAllowSeparateKeys(t *testing.T) {
	limiter, _ := setupLimiter(t, time.Minute, 1)
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	// Другой пользователь и другая функция считаются отдельно.
	allowed, _, err = limiter.Allow(ctx, "user-2", "feature-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "user-1", "feature-2")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestWindowExpiryOpensNewWindow(t *testing.T) {
	limiter, srv := setupLimiter(t, time.Minute, 1)
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	srv.FastForward(61 * time.Second)

	allowed, count, err := limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.True(t, allowed, "fresh window must admit again")
	assert.Equal(t, int64(1), count)
}

func TestWindow(t *testing.T) {
	limiter, _ := setupLimiter(t, time.Minute, 100)
	ctx := context.Background()

	remaining, err := limiter.Window(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)

	_, _, err = limiter.Allow(ctx, "user-1", "feature-1")
	require.NoError(t, err)

	remaining, err = limiter.Window(ctx, "user-1", "feature-1")
	require.NoError(t, err)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, time.Minute)
}
