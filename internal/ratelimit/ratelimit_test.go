package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/recurra/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerAlwaysGrants(t *testing.T) {
	locker := NewLocker(nil)

	token, ok, err := locker.TryLock(context.Background(), "recurra:lock:test", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = locker.TryLock(context.Background(), "recurra:lock:test", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, locker.Release(context.Background(), "recurra:lock:test", token))
}

func TestLockerValidatesArguments(t *testing.T) {
	locker := NewLocker(nil)

	_, _, err := locker.TryLock(context.Background(), "", time.Minute)
	assert.Error(t, err)

	_, _, err = locker.TryLock(context.Background(), "key", 0)
	assert.Error(t, err)
}

func TestTokenBucketWithoutClient(t *testing.T) {
	bucket := NewTokenBucket(nil)
	assert.Nil(t, bucket)

	res, err := bucket.Allow(context.Background(), "key", 1, 1)
	assert.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestProjectionLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewProjectionLimiter(nil, config.Config{ProjectionRatePerSecond: 1, ProjectionBurst: 5})
	assert.False(t, limiter.Enabled())

	res, err := limiter.Allow(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = limiter.Allow(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidTeam)
}

func TestBuildResultComputesRetryAfter(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	denied := buildResult(false, 0.5, now.UnixMilli(), 2, 10)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, now.Add(250*time.Millisecond), denied.ResetTime)
	assert.Equal(t, 10, denied.Limit)

	allowed := buildResult(true, 7.9, now.UnixMilli(), 2, 10)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 7, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)
}

func TestCastHelpers(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(3), castToInt(float64(3.7)))
	assert.Equal(t, int64(0), castToInt("x"))

	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
	assert.Equal(t, 0.0, castToFloat("nope"))
}
