// Package statuslink is a reconnecting websocket client for the live status
// stream. Each Link owns its connection; there is no shared handle.
package statuslink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
)

const writeWait = 5 * time.Second

var (
	// ErrClosed is returned by Connect and Run after Close.
	ErrClosed = errors.New("statuslink: closed")
	// ErrRejected is returned when the server refuses the handshake with 401 or 403.
	ErrRejected = errors.New("statuslink: handshake rejected")
)

// Handler receives each text or binary frame.
type Handler func(ctx context.Context, msg []byte)

// Config configures a Link.
type Config struct {
	URL    string
	Header http.Header
	// BaseBackoff and MaxBackoff shape the fibonacci reconnect delay.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// MaxRetries caps consecutive failed dials; zero retries forever.
	MaxRetries uint64
	// ReadTimeout drops the connection when no frame or ping arrives in time.
	ReadTimeout time.Duration
	Dialer      *websocket.Dialer
}

// Link is a websocket client that redials after errors until closed.
type Link struct {
	cfg Config

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

// New returns an unconnected Link.
func New(cfg Config) *Link {
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Link{cfg: cfg, done: make(chan struct{})}
}

// Connect dials once. It is a no-op when already connected.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.conn != nil {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	conn, resp, err := l.cfg.Dialer.DialContext(ctx, l.cfg.URL, l.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		}
		return fmt.Errorf("statuslink: dial: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		_ = conn.Close()
		return ErrClosed
	}
	l.conn = conn
	return nil
}

// Run reads frames into h, reconnecting with backoff whenever the connection
// drops. It returns nil after Close, ctx.Err() on cancellation, or the last
// dial error once retries are exhausted.
func (l *Link) Run(ctx context.Context, h Handler) error {
	for {
		if err := l.dial(ctx); err != nil {
			if l.isClosed() {
				return nil
			}
			return err
		}

		err := l.read(ctx, h)
		switch {
		case l.isClosed():
			return nil
		case ctx.Err() != nil:
			l.drop()
			return ctx.Err()
		}
		slog.WarnContext(ctx, "status link dropped, reconnecting", "url", l.cfg.URL, "error", err)
		l.drop()
	}
}

// Close sends a close frame and stops Run.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return conn.Close()
}

func (l *Link) dial(ctx context.Context) error {
	b := retry.WithCappedDuration(l.cfg.MaxBackoff, retry.NewFibonacci(l.cfg.BaseBackoff))
	if l.cfg.MaxRetries > 0 {
		b = retry.WithMaxRetries(l.cfg.MaxRetries, b)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := l.Connect(ctx)
		if err == nil || errors.Is(err, ErrClosed) || errors.Is(err, ErrRejected) {
			return err
		}
		slog.DebugContext(ctx, "status link dial failed", "url", l.cfg.URL, "error", err)
		return retry.RetryableError(err)
	})
}

func (l *Link) read(ctx context.Context, h Handler) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	extend := func() error { return conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout)) }
	if err := extend(); err != nil {
		return err
	}
	conn.SetPingHandler(func(data string) error {
		if err := extend(); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		h(ctx, msg)
	}
}

func (l *Link) drop() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (l *Link) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
