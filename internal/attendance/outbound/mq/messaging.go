package mq

import (
	"context"
	"encoding/json"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishSessionStarted(ctx context.Context, msg usecase.SessionStartedEvent) error {
	return m.publish(ctx, "PublishSessionStarted", event.SessionStartedDestination, msg.Meeting.Date, event.SessionStartedMessage{
		EventID:                 msg.EventID,
		MeetingID:               int64(msg.Meeting.ID),
		MeetingDate:             msg.Meeting.Date,
		GroupID:                 int64(msg.Meeting.GroupID),
		ActivatedBy:             int64(msg.Meeting.ActivatedBy),
		RotationIntervalSeconds: msg.RotationIntervalSeconds,
		ActivatedAt:             msg.Meeting.ActivatedAt.UnixMilli(),
	})
}

func (m *Messaging) PublishSessionStopped(ctx context.Context, msg usecase.SessionStoppedEvent) error {
	var at int64
	if msg.Meeting.DeactivatedAt != nil {
		at = msg.Meeting.DeactivatedAt.UnixMilli()
	}

	return m.publish(ctx, "PublishSessionStopped", event.SessionStoppedDestination, msg.Meeting.Date, event.SessionStoppedMessage{
		EventID:       msg.EventID,
		MeetingID:     int64(msg.Meeting.ID),
		MeetingDate:   msg.Meeting.Date,
		GroupID:       int64(msg.Meeting.GroupID),
		DeactivatedBy: int64(msg.Meeting.DeactivatedBy),
		DeactivatedAt: at,
	})
}

func (m *Messaging) PublishScanRecorded(ctx context.Context, msg usecase.ScanRecordedEvent) error {
	a := msg.Attendance
	return m.publish(ctx, "PublishScanRecorded", event.ScanRecordedDestination, a.MeetingDate, event.ScanRecordedMessage{
		EventID:     msg.EventID,
		MeetingID:   int64(a.MeetingID),
		MeetingDate: a.MeetingDate,
		GroupID:     int64(a.GroupID),
		UserID:      int64(a.UserID),
		ScannedAt:   a.ScannedAt.UnixMilli(),
	})
}

// publish keys every message by meeting date so brokers with ordering keep
// the events of one day in order.
func (m *Messaging) publish(ctx context.Context, op, dest, date string, payload any) error {
	ctx, span := m.ins.Tracer("attendance.outbound.mq").Start(ctx, op)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, dest, messaging.OutgoingMessage{
		Body:        body,
		Key:         []byte(date),
		OrderingKey: date,
		Headers:     map[string]string{event.HeaderCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
