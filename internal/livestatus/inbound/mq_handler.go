package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/event"
)

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if id := msg.Header(event.HeaderCorrelationID); id != "" {
		return instrument.SetCorrelationID(ctx, id)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// handle decodes the body into payload and forwards the mapped event. A body
// that does not parse is acked and dropped since redelivery cannot fix it.
func handle[T any](ctx context.Context, h *MQHandler, msg messaging.Message, op string, toEvent func(T) entity.Event) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("livestatus.inbound.mq").Start(ctx, op)
	defer span.End()

	body := msg.Body()
	slog.DebugContext(ctx, "consume: "+op, "msg_body", string(body))

	var payload T
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of "+op, "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeEvent(ctx, usecase.ConsumeEventInput{Event: toEvent(payload)}); err != nil {
		slog.ErrorContext(ctx, "failed to consume "+op, "msg_body", string(body), "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) SessionStarted(ctx context.Context, msg messaging.Message) error {
	return handle(ctx, h, msg, "SessionStarted", func(p event.SessionStartedMessage) entity.Event {
		return entity.Event{
			ID:                      p.EventID,
			Type:                    entity.EventSessionStarted,
			MeetingID:               p.MeetingID,
			MeetingDate:             p.MeetingDate,
			GroupID:                 p.GroupID,
			UserID:                  p.ActivatedBy,
			RotationIntervalSeconds: p.RotationIntervalSeconds,
			At:                      p.ActivatedAt,
		}
	})
}

func (h *MQHandler) SessionStopped(ctx context.Context, msg messaging.Message) error {
	return handle(ctx, h, msg, "SessionStopped", func(p event.SessionStoppedMessage) entity.Event {
		return entity.Event{
			ID:          p.EventID,
			Type:        entity.EventSessionStopped,
			MeetingID:   p.MeetingID,
			MeetingDate: p.MeetingDate,
			GroupID:     p.GroupID,
			UserID:      p.DeactivatedBy,
			At:          p.DeactivatedAt,
		}
	})
}

func (h *MQHandler) ScanRecorded(ctx context.Context, msg messaging.Message) error {
	return handle(ctx, h, msg, "ScanRecorded", func(p event.ScanRecordedMessage) entity.Event {
		return entity.Event{
			ID:          p.EventID,
			Type:        entity.EventScanRecorded,
			MeetingID:   p.MeetingID,
			MeetingDate: p.MeetingDate,
			GroupID:     p.GroupID,
			UserID:      p.UserID,
			At:          p.ScannedAt,
		}
	})
}
