package display

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/rotator"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/statuslink"
)

// ErrSessionStopped is returned by Run when the server reports that the
// displayed session ended.
var ErrSessionStopped = errors.New("display: session stopped")

type secretFetcher interface {
	FetchSecret(ctx context.Context, date string, group int64) (*Session, error)
}

// Config configures a Display.
type Config struct {
	MeetingDate string
	GroupID     int64
	Tick        time.Duration
	// Live subscribes to the livestatus stream to stop on session end.
	Live     bool
	LiveURL  string
	LiveAuth http.Header
	Clock    clock.Clocker
}

// Display owns one rotation run. It is not reusable.
type Display struct {
	cfg      Config
	fetcher  secretFetcher
	renderer Renderer
}

func New(cfg Config, fetcher secretFetcher, renderer Renderer) *Display {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Display{cfg: cfg, fetcher: fetcher, renderer: renderer}
}

// offsetClock follows the server clock measured at fetch time.
type offsetClock struct {
	base   clock.Clocker
	offset time.Duration
}

func (c offsetClock) Now() time.Time { return c.base.Now().Add(c.offset) }

type liveEvent struct {
	Type      string `json:"type"`
	MeetingID int64  `json:"meeting_id,string"`
}

// Run fetches the secret and renders a frame per window until ctx ends or
// the session stops. It returns nil on cancellation.
func (d *Display) Run(ctx context.Context) error {
	sess, err := d.fetcher.FetchSecret(ctx, d.cfg.MeetingDate, d.cfg.GroupID)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "display session loaded",
		"meeting_id", sess.MeetingID, "date", sess.MeetingDate, "interval", sess.RotationIntervalSeconds, "offset", sess.Offset.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stopOnce sync.Once
		stopped  = make(chan struct{})
	)
	markStopped := func() { stopOnce.Do(func() { close(stopped) }) }

	rot := rotator.New(sess.Secret, sess.RotationIntervalSeconds, func(f rotator.Frame) {
		if err := d.renderer.Render(f); err != nil {
			slog.ErrorContext(ctx, "failed to render frame", "rotation", f.Rotation, "error", err)
		}
	},
		rotator.WithTick(d.cfg.Tick),
		rotator.WithClock(offsetClock{base: d.cfg.Clock, offset: sess.Offset}),
	)
	if err := rot.Start(ctx); err != nil {
		return err
	}
	defer rot.Stop()

	var link *statuslink.Link
	if d.cfg.Live && d.cfg.LiveURL != "" {
		link = statuslink.New(statuslink.Config{URL: d.cfg.LiveURL, Header: d.cfg.LiveAuth})
		defer link.Close()

		go func() {
			err := link.Run(ctx, func(ctx context.Context, msg []byte) {
				var evt liveEvent
				if err := json.Unmarshal(msg, &evt); err != nil {
					slog.WarnContext(ctx, "unreadable live event", "error", err)
					return
				}
				if evt.Type == "session_stopped" && evt.MeetingID == sess.MeetingID {
					markStopped()
				}
			})
			if err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "live status unavailable, rotating until interrupted", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case <-stopped:
		slog.InfoContext(ctx, "session stopped by server", "meeting_id", sess.MeetingID)
		return ErrSessionStopped
	}
}
