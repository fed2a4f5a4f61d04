package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("put get delete", func(t *testing.T) {
		// Arrange
		m := NewMemory()
		m.now = func() time.Time { return fixed }

		// Act
		info, err := m.PutObject(ctx, "b", "logs/2024-05-01/1.json", strings.NewReader(`{"a":1}`), PutOptions{ContentType: "application/json"})
		require.NoError(t, err)

		rc, got, err := m.GetObject(ctx, "b", "logs/2024-05-01/1.json")
		require.NoError(t, err)
		body, _ := io.ReadAll(rc)

		// Assert
		assert.Equal(t, int64(7), info.Size)
		assert.Equal(t, fixed, got.UpdatedAt)
		assert.Equal(t, "application/json", got.ContentType)
		assert.Equal(t, `{"a":1}`, string(body))

		require.NoError(t, m.DeleteObject(ctx, "b", "logs/2024-05-01/1.json"))
		_, _, err = m.GetObject(ctx, "b", "logs/2024-05-01/1.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list is scoped and sorted", func(t *testing.T) {
		m := NewMemory()
		for _, k := range []string{"p/2", "p/1", "q/1"} {
			_, err := m.PutObject(ctx, "b", k, strings.NewReader("x"), PutOptions{})
			require.NoError(t, err)
		}
		_, err := m.PutObject(ctx, "other", "p/3", strings.NewReader("x"), PutOptions{})
		require.NoError(t, err)

		all, err := m.ListObjects(ctx, "b", "p/", 0)
		require.NoError(t, err)
		limited, err := m.ListObjects(ctx, "b", "p/", 1)
		require.NoError(t, err)

		require.Len(t, all, 2)
		assert.Equal(t, "p/1", all[0].Key)
		assert.Equal(t, "p/2", all[1].Key)
		assert.Len(t, limited, 1)
	})

	t.Run("presign", func(t *testing.T) {
		m := NewMemory()
		m.now = func() time.Time { return fixed }
		_, err := m.PutObject(ctx, "b", "k.json", strings.NewReader("x"), PutOptions{})
		require.NoError(t, err)

		u, err := m.PresignGet(ctx, "b", "k.json", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "memory://b/k.json?expires=2024-05-01T13%3A00%3A00Z", u)

		_, err = m.PresignGet(ctx, "b", "missing", time.Hour)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestNewFromDriver(t *testing.T) {
	s, err := NewFromDriver(context.Background(), "", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = NewFromDriver(context.Background(), "ftp", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
