package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
)

type RecordScanInput struct {
	UserID      entity.UserID    `validate:"gt=0"`
	GroupID     entity.GroupID   `validate:"gte=0"`
	MeetingID   entity.MeetingID `validate:"gt=0"`
	MeetingDate string           `validate:"required,meetingdate"`
	Token       entity.QRToken
	ScannedAt   time.Time `validate:"required"`
}

// RecordScan persists an accepted scan. A second call for the same user and
// date reports RecordAlreadyRecorded with the stored record and no error.
func (s *Usecase) RecordScan(ctx context.Context, in RecordScanInput) (entity.RecordOutcome, *entity.Attendance, error) {
	ctx, span := s.startSpan(ctx, "RecordScan")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return 0, nil, goerror.NewInvalidInput(err)
	}

	att := entity.Attendance{
		ID:          s.uid.Generate(),
		UserID:      in.UserID,
		GroupID:     in.GroupID,
		MeetingID:   in.MeetingID,
		MeetingDate: in.MeetingDate,
		ScannedAt:   in.ScannedAt,
		QRTokenID:   in.Token.ID,
		Status:      entity.AttendanceStatusPresent,
	}

	stored, created, err := s.repoDB.RecordAttendance(ctx, att)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo record attendance", "user_id", in.UserID, "date", in.MeetingDate, "error", err)
		return 0, nil, goerror.NewServer(err)
	}

	if !created {
		slog.InfoContext(ctx, "attendance already recorded", "user_id", in.UserID, "date", in.MeetingDate)
		return entity.RecordAlreadyRecorded, stored, nil
	}

	if !in.Token.IsConsumed && in.Token.ID != 0 {
		if err := s.repoDB.MarkQRTokenConsumed(ctx, in.Token.ID); err != nil {
			slog.WarnContext(ctx, "failed to repo mark qr token consumed", "qr_token_id", in.Token.ID, "error", err)
		}
	}

	if err := s.repoMessaging.PublishScanRecorded(ctx, ScanRecordedEvent{
		EventID:    s.uuid.Generate(),
		Attendance: att,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish scan recorded", "user_id", in.UserID, "meeting_id", in.MeetingID, "error", err)
	}

	return entity.RecordCreated, &att, nil
}
