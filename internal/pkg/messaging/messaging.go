package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned when the driver cannot honour a publish option.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned for an empty topic or subject.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume gets a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrClosed is returned after Close.
	ErrClosed = io.ErrClosedPipe
)

// Messaging is a broker client that can publish and consume.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer blocks delivering messages from source to handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With auto-ack a nil error acks and an error
// nacks (or leaves unacked where the broker has no nack).
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is the broker-neutral publish payload.
type OutgoingMessage struct {
	Body []byte
	// Key is used for Kafka partitioning.
	Key []byte
	// Headers travel as NATS headers, Kafka headers or Pub/Sub attributes.
	// NSQ has no headers and drops them.
	Headers map[string]string
	// OrderingKey is used by Pub/Sub.
	OrderingKey string
	// Delay defers delivery where the driver supports it (NSQ).
	Delay time.Duration
}

// PublishResult carries what the broker reported back.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Header(key string) string
	Headers() map[string]string
	ID() string
	Source() string
	Timestamp() time.Time
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}
