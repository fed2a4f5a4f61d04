package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/idempotency"
)

type ConsumeEventInput struct {
	Event entity.Event
}

// ConsumeEvent fans a broker event out to matching subscribers once per
// event id. When the dedupe store is unreachable the event is still
// delivered; a duplicate frame is better than a missed session stop.
func (s *Usecase) ConsumeEvent(ctx context.Context, in ConsumeEventInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeEvent")
	defer span.End()

	evt := in.Event
	if evt.ID == "" || evt.MeetingDate == "" {
		slog.WarnContext(ctx, "livestatus event without id or date dropped", "type", evt.Type)
		return nil
	}

	delivered := false
	err := s.guard.Exec(ctx, "livestatus:"+s.instance+":"+evt.ID, func(ctx context.Context) error {
		delivered = true
		n := s.broadcast(ctx, evt)
		slog.DebugContext(ctx, "livestatus event delivered", "event_id", evt.ID, "type", evt.Type, "subscribers", n)
		return nil
	}, idempotency.WithStateTTL(s.dedupeTTL))

	switch {
	case errors.Is(err, idempotency.ErrCompleted), errors.Is(err, idempotency.ErrInProgress):
		slog.InfoContext(ctx, "livestatus duplicate event skipped", "event_id", evt.ID)
		return nil
	case err != nil && !delivered:
		slog.WarnContext(ctx, "livestatus dedupe unavailable, delivering anyway", "event_id", evt.ID, "error", err)
		s.broadcast(ctx, evt)
		return nil
	case err != nil:
		slog.WarnContext(ctx, "failed to mark livestatus event completed", "event_id", evt.ID, "error", err)
	}

	return nil
}
