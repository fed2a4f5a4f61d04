package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type SessionStopInput struct {
	MeetingDate string `validate:"omitempty,meetingdate"`
	GroupID     int64  `validate:"gte=0"`
}

func (s *Usecase) SessionStop(ctx context.Context, in SessionStopInput) (*entity.Meeting, error) {
	ctx, span := s.startSpan(ctx, "SessionStop")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	scope := s.scope(in.MeetingDate, in.GroupID)
	caller, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceSession, constant.PermActWrite, scope.GroupID, groupManage)
	if err != nil {
		return nil, err
	}

	active, err := s.activeMeeting(ctx, scope)
	if err != nil {
		return nil, err
	}

	// Evict before and after the transaction so no reader refills the cache
	// from a row that is about to disappear.
	s.evictSecret(ctx, active.ID)

	meeting, err := s.repoDB.StopMeeting(ctx, active.ID, caller.UserID, s.clock.Now())
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errNotActive
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo stop meeting", "meeting_id", active.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.evictSecret(ctx, meeting.ID)

	if err := s.repoMessaging.PublishSessionStopped(ctx, SessionStoppedEvent{
		EventID: s.uuid.Generate(),
		Meeting: *meeting,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish session stopped", "meeting_id", meeting.ID, "error", err)
	}

	slog.InfoContext(ctx, "session stopped", "meeting_id", meeting.ID, "date", scope.Date, "group_id", scope.GroupID, "by_user_id", caller.UserID)

	return meeting, nil
}
