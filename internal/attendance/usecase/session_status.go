package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type (
	SessionStatusInput struct {
		MeetingDate string `validate:"omitempty,meetingdate"`
		GroupID     int64  `validate:"gte=0"`
	}

	SessionStatusOutput struct {
		IsActive bool
		Scope    entity.Scope
		// Meeting is nil when no session is active.
		Meeting *entity.Meeting
	}
)

// SessionStatus never exposes the secret and is readable by any member.
func (s *Usecase) SessionStatus(ctx context.Context, in SessionStatusInput) (*SessionStatusOutput, error) {
	ctx, span := s.startSpan(ctx, "SessionStatus")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	scope := s.scope(in.MeetingDate, in.GroupID)
	if _, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceSession, constant.PermActRead, scope.GroupID, groupJoin); err != nil {
		return nil, err
	}

	m, err := s.repoDB.GetActiveMeeting(ctx, scope)
	if errors.Is(err, goerror.ErrNotFound) {
		return &SessionStatusOutput{Scope: scope}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get active meeting", "date", scope.Date, "group_id", scope.GroupID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SessionStatusOutput{IsActive: true, Scope: scope, Meeting: m}, nil
}
