package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager(t *testing.T) {
	t.Run("collects errors", func(t *testing.T) {
		// Arrange
		m := NewManager(4)
		boom := errors.New("boom")
		var ran atomic.Int32

		// Act
		m.Go(context.Background(), func(context.Context) error { ran.Add(1); return nil })
		m.Go(context.Background(), func(context.Context) error { ran.Add(1); return boom })
		err := m.Wait()

		// Assert
		assert.Equal(t, int32(2), ran.Load())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("recovers panic", func(t *testing.T) {
		m := NewManager(1)

		m.Go(context.Background(), func(context.Context) error { panic("bad") })

		assert.ErrorIs(t, m.Wait(), ErrPanic)
	})

	t.Run("drops when closed", func(t *testing.T) {
		m := NewManager(1)
		assert.NoError(t, m.Wait())
		var ran atomic.Bool

		m.Go(context.Background(), func(context.Context) error { ran.Store(true); return nil })

		assert.NoError(t, m.Wait())
		assert.False(t, ran.Load())
	})

	t.Run("drops when full", func(t *testing.T) {
		m := NewManager(1)
		release := make(chan struct{})
		var second atomic.Bool

		m.Go(context.Background(), func(context.Context) error { <-release; return nil })
		m.Go(context.Background(), func(context.Context) error { second.Store(true); return nil })
		close(release)

		assert.NoError(t, m.Wait())
		assert.False(t, second.Load())
	})

	t.Run("skips canceled context", func(t *testing.T) {
		m := NewManager(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var ran atomic.Bool

		m.Go(ctx, func(context.Context) error { ran.Store(true); return nil })

		assert.NoError(t, m.Wait())
		assert.False(t, ran.Load())
	})

	t.Run("nil manager", func(t *testing.T) {
		var m *Manager
		m.Go(context.Background(), func(context.Context) error { return nil })
		assert.NoError(t, m.Wait())
	})
}
