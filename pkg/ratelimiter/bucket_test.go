package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/pkg/ratelimiter"
)

func TestNewBucket_Validation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()

	valid := ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Second}

	tests := []struct {
		name   string
		store  ratelimiter.Store
		config ratelimiter.Config
	}{
		{"nil store", nil, valid},
		{"zero capacity", store, ratelimiter.Config{Capacity: 0, RefillRate: 1, RefillInterval: time.Second}},
		{"zero refill rate", store, ratelimiter.Config{Capacity: 10, RefillRate: 0, RefillInterval: time.Second}},
		{"zero refill interval", store, ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(tt.store, tt.config)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func TestBucket_Allow(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()

	tb, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Hour, // no refills during the test
	})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, first.Allowed())
	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, 2, first.Limit)
	assert.Zero(t, first.RetryAfter())

	second, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, second.Allowed())
	assert.Equal(t, 0, second.Remaining)

	third, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, third.Allowed())
	assert.Negative(t, third.Remaining)
	assert.Positive(t, third.RetryAfter())

	// Separate keys get separate buckets.
	other, err := tb.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, other.Allowed())
}

func TestBucket_AllowN(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()

	tb, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       10,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := tb.AllowN(ctx, "batch", 7)
	require.NoError(t, err)
	assert.True(t, result.Allowed())
	assert.Equal(t, 3, result.Remaining)

	result, err = tb.AllowN(ctx, "batch", 4)
	require.NoError(t, err)
	assert.False(t, result.Allowed())

	_, err = tb.AllowN(ctx, "batch", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	_, err = tb.AllowN(ctx, "batch", -1)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	_, err = tb.AllowN(ctx, "batch", 11)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestBucket_Refill(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()

	tb, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       1,
		RefillRate:     1,
		RefillInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, first.Allowed())

	require.Eventually(t, func() bool {
		result, err := tb.Allow(ctx, "user:1")
		return err == nil && result.Allowed()
	}, time.Second, 25*time.Millisecond)
}

func TestBucket_StatusDoesNotConsume(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()

	tb, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       5,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		status, err := tb.Status(ctx, "user:1")
		require.NoError(t, err)
		assert.Equal(t, 5, status.Remaining)
	}

	result, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 4, result.Remaining)
}

func TestBucket_Reset(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore()

	tb, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       1,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, first.Allowed())

	denied, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, denied.Allowed())

	require.NoError(t, tb.Reset(ctx, "user:1"))

	fresh, err := tb.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed())
}
