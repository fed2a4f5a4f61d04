//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestCache_Secret(t *testing.T) {
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

	c := NewCache(client, instrument.NewNoop())

	// Act & Assert
	_, err = c.GetSecret(ctx, 1)
	require.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, c.SetSecret(ctx, 1, []byte("sealed"), time.Minute))
	got, err := c.GetSecret(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), got)

	ttl, err := client.TTL(ctx, key(1)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.DeleteSecret(ctx, 1))
	_, err = c.GetSecret(ctx, 1)
	require.ErrorIs(t, err, goerror.ErrNotFound)
}
