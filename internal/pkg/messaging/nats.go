package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a Messaging backed by core NATS.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

// NewNATS connects to cfg.URL.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}
	return &NATS{conn: conn}, nil
}

// Close unsubscribes everything and closes the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
			errs = append(errs, err)
		}
	}
	n.conn.Close()
	return errors.Join(errs...)
}

// Publish sends msg to the destination subject and flushes.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		nmsg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Consume subscribes to source, inside the queue group given by
// WithQueueGroup when set, and blocks until ctx ends.
func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	co := newConsumeOptions(opts...)

	msgCh := make(chan *nats.Msg, co.concurrency)
	sub, err := n.conn.QueueSubscribe(source, co.queueGroup, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		_ = sub.Unsubscribe()
		return ErrClosed
	}
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-msgCh:
					_ = dispatch(ctx, DriverNATS, handler, &natsMessage{msg: m, received: time.Now()}, co.autoAck)
				}
			}
		})
	}

	<-ctx.Done()
	derr := sub.Drain()
	wg.Wait()
	if errors.Is(derr, nats.ErrConnectionClosed) || errors.Is(derr, nats.ErrBadSubscription) {
		derr = nil
	}
	return errors.Join(ctx.Err(), derr)
}

type natsMessage struct {
	acker
	msg      *nats.Msg
	received time.Time
}

func (m *natsMessage) Body() []byte           { return m.msg.Data }
func (m *natsMessage) Key() []byte            { return nil }
func (m *natsMessage) Header(k string) string { return m.msg.Header.Get(k) }
func (m *natsMessage) ID() string             { return m.msg.Header.Get(nats.MsgIdHdr) }
func (m *natsMessage) Source() string         { return m.msg.Subject }
func (m *natsMessage) Timestamp() time.Time   { return m.received }

func (m *natsMessage) Headers() map[string]string {
	out := make(map[string]string, len(m.msg.Header))
	for k := range m.msg.Header {
		out[k] = m.msg.Header.Get(k)
	}
	return out
}

// Ack replies only when the publisher asked for one.
func (m *natsMessage) Ack(context.Context) error {
	if !m.claim() || m.msg.Reply == "" {
		return nil
	}
	return m.msg.Ack()
}

func (m *natsMessage) Nack(context.Context) error {
	if !m.claim() || m.msg.Reply == "" {
		return nil
	}
	return m.msg.Nak()
}
