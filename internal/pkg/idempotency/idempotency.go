// Package idempotency guards handlers that may see the same message more than
// once (broker redelivery, client retries) with a small state machine in redis.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInProgress = errors.New("idempotency: operation in progress")
	ErrCompleted  = errors.New("idempotency: operation already completed")
	ErrBadState   = errors.New("idempotency: unknown stored state")
)

// State is what redis holds for a key.
type State string

const (
	StateNone       State = ""
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Guard is the contract used by consumers.
type Guard interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// Tracker implements Guard over any redis client.
type Tracker struct {
	client redis.Cmdable
	prefix string
}

// New returns a Tracker storing keys under "idempotency:".
func New(client redis.Cmdable) *Tracker {
	return &Tracker{client: client, prefix: "idempotency:"}
}

const (
	defaultLock = time.Minute
	defaultTTL  = 10 * time.Minute
)

type options struct {
	lock time.Duration
	ttl  time.Duration
}

// Option tunes Exec.
type Option func(*options)

// WithLockDuration bounds how long an in-progress marker survives a crash.
func WithLockDuration(d time.Duration) Option { return func(o *options) { o.lock = d } }

// WithStateTTL sets how long a completed marker is remembered.
func WithStateTTL(d time.Duration) Option { return func(o *options) { o.ttl = d } }

// Acquire marks key in progress. It returns StateNone when the caller owns
// the key, otherwise the state somebody else left.
func (t *Tracker) Acquire(ctx context.Context, key string, lock time.Duration) (State, error) {
	k := t.prefix + key

	ok, err := t.client.SetNX(ctx, k, string(StateInProgress), lock).Result()
	if err != nil {
		return StateNone, err
	}
	if ok {
		return StateNone, nil
	}

	current, err := t.client.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SetNX and Get
		return t.Acquire(ctx, key, lock)
	case err != nil:
		return StateNone, err
	}

	switch State(current) {
	case StateInProgress, StateCompleted:
		return State(current), nil
	default:
		return StateNone, ErrBadState
	}
}

// Complete remembers key as done for ttl.
func (t *Tracker) Complete(ctx context.Context, key string, ttl time.Duration) error {
	return t.client.Set(ctx, t.prefix+key, string(StateCompleted), ttl).Err()
}

// Release forgets key so a later delivery may retry it.
func (t *Tracker) Release(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.prefix+key).Err()
}

// Exec runs fn at most once per key until the completed marker expires. A
// failing fn releases the key and its error is returned.
func (t *Tracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := options{lock: defaultLock, ttl: defaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lock <= 0 {
		o.lock = defaultLock
	}
	if o.ttl <= 0 {
		o.ttl = defaultTTL
	}

	state, err := t.Acquire(ctx, key, o.lock)
	if err != nil {
		return err
	}
	switch state {
	case StateInProgress:
		return ErrInProgress
	case StateCompleted:
		return ErrCompleted
	}

	if err := fn(ctx); err != nil {
		if relErr := t.Release(ctx, key); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}

	return t.Complete(ctx, key, o.ttl)
}
