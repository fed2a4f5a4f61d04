// Package rotator recomputes the current QR token on a short tick and reports
// each new rotation window. It never talks to the server; the secret is
// fetched once by the caller.
package rotator

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"go.uber.org/atomic"
)

// DefaultTick is how often the window is re-checked.
const DefaultTick = 250 * time.Millisecond

// ErrRunning is returned by Start while a previous run is still active.
var ErrRunning = errors.New("rotator: already running")

// Frame is the token state at one tick.
type Frame struct {
	Token       string
	WindowStart int64
	// ExpiresAt is the window expiry in Unix seconds.
	ExpiresAt int64
	Remaining time.Duration
	// Rotation counts windows seen by this rotator, starting at 1.
	Rotation int64
}

// Option configures a Rotator.
type Option func(*Rotator)

// WithTick sets the re-check interval. Non-positive values are ignored.
func WithTick(d time.Duration) Option {
	return func(r *Rotator) {
		if d > 0 {
			r.tick = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clocker) Option {
	return func(r *Rotator) { r.clock = c }
}

// WithOnTick is called on every tick, after any rotation callback.
func WithOnTick(fn func(Frame)) Option {
	return func(r *Rotator) { r.onTick = fn }
}

// Rotator is a restartable timer task. Callbacks run on its goroutine.
type Rotator struct {
	secret   qrtoken.Secret
	interval int64
	tick     time.Duration
	clock    clock.Clocker
	onRotate func(Frame)
	onTick   func(Frame)

	running    *atomic.Bool
	lastWindow *atomic.Int64
	rotations  *atomic.Int64
	current    *atomic.Pointer[Frame]

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New builds a stopped rotator. onRotate fires once per window, including the
// window current at Start.
func New(secret qrtoken.Secret, intervalSeconds int64, onRotate func(Frame), opts ...Option) *Rotator {
	r := &Rotator{
		secret:     secret,
		interval:   intervalSeconds,
		tick:       DefaultTick,
		clock:      clock.New(),
		onRotate:   onRotate,
		running:    atomic.NewBool(false),
		lastWindow: atomic.NewInt64(math.MinInt64),
		rotations:  atomic.NewInt64(0),
		current:    atomic.NewPointer[Frame](nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interval <= 0 {
		r.interval = qrtoken.DefaultIntervalSeconds
	}
	return r
}

// Start launches the loop. It ends when ctx is done or Stop is called.
func (r *Rotator) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.run(ctx, r.stop, r.done)
	return nil
}

// Stop ends the loop and waits for it. Safe to call when not running.
func (r *Rotator) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop = nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Done is closed when the current run ends. It is nil before the first Start.
func (r *Rotator) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Running reports whether the loop is active.
func (r *Rotator) Running() bool { return r.running.Load() }

// Current returns the latest frame and false if none was computed yet.
func (r *Rotator) Current() (Frame, bool) {
	f := r.current.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

func (r *Rotator) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	defer r.running.Store(false)

	t := time.NewTicker(r.tick)
	defer t.Stop()

	r.step()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-t.C:
			r.step()
		}
	}
}

func (r *Rotator) step() {
	ms := r.clock.Now().UnixMilli()
	ws := qrtoken.WindowStart(ms, r.interval)
	expires := qrtoken.WindowExpiry(ws, r.interval)

	rotated := r.lastWindow.Swap(ws) != ws
	rotation := r.rotations.Load()
	if rotated {
		rotation = r.rotations.Inc()
	}

	f := Frame{
		Token:       qrtoken.ForWindow(r.secret, ws),
		WindowStart: ws,
		ExpiresAt:   expires,
		Remaining:   time.Duration(expires*1000-ms) * time.Millisecond,
		Rotation:    rotation,
	}
	r.current.Store(&f)

	if rotated && r.onRotate != nil {
		r.onRotate(f)
	}
	if r.onTick != nil {
		r.onTick(f)
	}
}
