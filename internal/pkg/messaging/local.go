package messaging

import (
	"context"
	"maps"
	"strconv"
	"sync"
	"time"
)

// localBuffer is the per-consumer queue depth. Publish blocks when a
// consumer falls this far behind.
const localBuffer = 256

// Local is an in-process broker. Every Consume call on a topic receives
// every message published to it after the call subscribed. Nack redelivers
// once to the same consumer.
type Local struct {
	mu     sync.RWMutex
	subs   map[string][]*localSub
	seq    uint64
	closed bool
	done   chan struct{}
}

type localSub struct {
	ch chan *localMessage
}

// NewLocal returns an empty broker.
func NewLocal() *Local {
	return &Local{subs: map[string][]*localSub{}, done: make(chan struct{})}
}

// Close stops every consumer. Subsequent Publish calls fail with ErrClosed.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)
	return nil
}

// Publish fans msg out to the current consumers of destination.
func (l *Local) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return PublishResult{}, ErrClosed
	}
	l.seq++
	id := strconv.FormatUint(l.seq, 10)
	subs := append([]*localSub(nil), l.subs[destination]...)
	l.mu.Unlock()

	now := time.Now()
	for _, s := range subs {
		m := &localMessage{
			id:      id,
			topic:   destination,
			body:    append([]byte(nil), msg.Body...),
			key:     msg.Key,
			headers: maps.Clone(msg.Headers),
			at:      now,
		}
		select {
		case s.ch <- m:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		case <-l.done:
			return PublishResult{}, ErrClosed
		}
	}

	return PublishResult{MessageID: id, Topic: destination, Timestamp: now}, nil
}

// Consume subscribes to source and blocks until ctx ends or the broker closes.
func (l *Local) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	co := newConsumeOptions(opts...)

	sub := &localSub{ch: make(chan *localMessage, localBuffer)}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.subs[source] = append(l.subs[source], sub)
	l.mu.Unlock()
	defer l.unsubscribe(source, sub)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-l.done:
					return
				case m := <-sub.ch:
					_ = dispatch(ctx, DriverLocal, handler, m, co.autoAck)
					if m.redeliver() {
						select {
						case sub.ch <- m.retry():
						default:
						}
					}
				}
			}
		})
	}
	wg.Wait()

	select {
	case <-l.done:
		return nil
	default:
		return ctx.Err()
	}
}

// Subscribers reports how many consumers are attached to topic.
func (l *Local) Subscribers(topic string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[topic])
}

func (l *Local) unsubscribe(topic string, sub *localSub) {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := l.subs[topic]
	for i, s := range subs {
		if s == sub {
			l.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type localMessage struct {
	acker
	id      string
	topic   string
	body    []byte
	key     []byte
	headers map[string]string
	at      time.Time
	attempt int
	nacked  bool
}

func (m *localMessage) Body() []byte               { return m.body }
func (m *localMessage) Key() []byte                { return m.key }
func (m *localMessage) Header(k string) string     { return m.headers[k] }
func (m *localMessage) Headers() map[string]string { return m.headers }
func (m *localMessage) ID() string                 { return m.id }
func (m *localMessage) Source() string             { return m.topic }
func (m *localMessage) Timestamp() time.Time       { return m.at }

func (m *localMessage) Ack(context.Context) error {
	m.claim()
	return nil
}

func (m *localMessage) Nack(context.Context) error {
	if m.claim() {
		m.nacked = true
	}
	return nil
}

func (m *localMessage) redeliver() bool { return m.nacked && m.attempt == 0 }

func (m *localMessage) retry() *localMessage {
	return &localMessage{
		id:      m.id,
		topic:   m.topic,
		body:    m.body,
		key:     m.key,
		headers: m.headers,
		at:      m.at,
		attempt: m.attempt + 1,
	}
}
