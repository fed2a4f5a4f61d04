//go:build integration

package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTracker_Exec(t *testing.T) {
	tracker := New(newRedis(t))
	ctx := context.Background()

	t.Run("runs once", func(t *testing.T) {
		// Arrange
		calls := 0
		fn := func(context.Context) error { calls++; return nil }

		// Act
		first := tracker.Exec(ctx, "evt-1", fn)
		second := tracker.Exec(ctx, "evt-1", fn)

		// Assert
		require.NoError(t, first)
		assert.ErrorIs(t, second, ErrCompleted)
		assert.Equal(t, 1, calls)
	})

	t.Run("failure releases key", func(t *testing.T) {
		boom := errors.New("boom")

		err := tracker.Exec(ctx, "evt-2", func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)

		err = tracker.Exec(ctx, "evt-2", func(context.Context) error { return nil })
		assert.NoError(t, err)
	})

	t.Run("in progress", func(t *testing.T) {
		state, err := tracker.Acquire(ctx, "evt-3", defaultLock)
		require.NoError(t, err)
		require.Equal(t, StateNone, state)

		err = tracker.Exec(ctx, "evt-3", func(context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrInProgress)
	})
}
