package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "attendance:secret:42", key(42))
}

func TestCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	c := NewCache(client, instrument.NewNoop())

	_, err := c.GetSecret(context.Background(), 1)

	assert.ErrorIs(t, err, goerror.ErrUnavailable)
	assert.NotErrorIs(t, err, goerror.ErrNotFound)
}
