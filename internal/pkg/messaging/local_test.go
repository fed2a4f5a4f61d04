package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSubscribers(t *testing.T, l *Local, topic string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return l.Subscribers(topic) == n }, time.Second, 5*time.Millisecond)
}

func TestLocal_FanOut(t *testing.T) {
	// Arrange
	l := NewLocal()
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string][]string{}
		wg   sync.WaitGroup
	)
	for _, name := range []string{"a", "b"} {
		wg.Go(func() {
			_ = l.Consume(ctx, "topic", func(_ context.Context, msg Message) error {
				mu.Lock()
				seen[name] = append(seen[name], string(msg.Body())+"|"+msg.Header("k"))
				mu.Unlock()
				return nil
			}, WithAutoAck(true))
		})
	}
	waitSubscribers(t, l, "topic", 2)

	// Act
	res, err := l.Publish(ctx, "topic", OutgoingMessage{Body: []byte("hello"), Headers: map[string]string{"k": "v"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1", res.MessageID)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen["a"]) == 1 && len(seen["b"]) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"hello|v"}, seen["a"])

	cancel()
	wg.Wait()
	waitSubscribers(t, l, "topic", 0)
}

func TestLocal_NackRedeliversOnce(t *testing.T) {
	l := NewLocal()
	defer l.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- l.Consume(ctx, "t", func(context.Context, Message) error {
			calls.Add(1)
			return errors.New("boom")
		}, WithAutoAck(true))
	}()
	waitSubscribers(t, l, "t", 1)

	_, err := l.Publish(ctx, "t", OutgoingMessage{Body: []byte("x")})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLocal_HandlerPanicIsRecovered(t *testing.T) {
	l := NewLocal()
	defer l.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = l.Consume(ctx, "t", func(_ context.Context, msg Message) error {
			if calls.Add(1) == 1 {
				panic("first")
			}
			return nil
		})
	}()
	waitSubscribers(t, l, "t", 1)

	_, err := l.Publish(ctx, "t", OutgoingMessage{Body: []byte("1")})
	require.NoError(t, err)
	_, err = l.Publish(ctx, "t", OutgoingMessage{Body: []byte("2")})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestLocal_Errors(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	_, err := l.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrDestinationRequired)
	assert.ErrorIs(t, l.Consume(ctx, "t", nil), ErrHandlerRequired)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err = l.Publish(ctx, "t", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, l.Consume(ctx, "t", func(context.Context, Message) error { return nil }), ErrClosed)
}

func TestLocal_CloseStopsConsumers(t *testing.T) {
	l := NewLocal()
	done := make(chan error, 1)
	go func() {
		done <- l.Consume(context.Background(), "t", func(context.Context, Message) error { return nil })
	}()
	waitSubscribers(t, l, "t", 1)

	require.NoError(t, l.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNewFromDriver(t *testing.T) {
	m, err := NewFromDriver(context.Background(), "", FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, m)
	require.NoError(t, m.Close())

	_, err = NewFromDriver(context.Background(), "carrier-pigeon", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(context.Background(), DriverKafka, FactoryOptions{})
	assert.ErrorIs(t, err, ErrKafkaBrokersRequired)
}
