package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/secretbox"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type (
	SessionStartInput struct {
		MeetingDate             string `validate:"omitempty,meetingdate"`
		GroupID                 int64  `validate:"gte=0"`
		RotationIntervalSeconds int64  `validate:"gte=0"`
	}

	SessionStartOutput struct {
		Meeting entity.Meeting
		Secret  qrtoken.Secret
	}
)

func (s *Usecase) SessionStart(ctx context.Context, in SessionStartInput) (*SessionStartOutput, error) {
	ctx, span := s.startSpan(ctx, "SessionStart")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	scope := s.scope(in.MeetingDate, in.GroupID)
	caller, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceSession, constant.PermActWrite, scope.GroupID, groupManage)
	if err != nil {
		return nil, err
	}

	interval, err := s.rotationInterval(in.RotationIntervalSeconds)
	if err != nil {
		return nil, err
	}

	_, err = s.repoDB.GetActiveMeeting(ctx, scope)
	if err == nil {
		slog.WarnContext(ctx, "session already active", "date", scope.Date, "group_id", scope.GroupID)
		return nil, goerror.NewBusiness("Session is already active", goerror.CodeConflict)
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get active meeting", "date", scope.Date, "group_id", scope.GroupID, "error", err)
		return nil, goerror.NewServer(err)
	}

	secret, err := qrtoken.NewSecret()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session secret", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	meeting := entity.Meeting{
		ID:                      entity.MeetingID(s.uid.Generate()),
		Date:                    scope.Date,
		GroupID:                 scope.GroupID,
		IsActive:                true,
		RotationIntervalSeconds: interval,
		ActivatedBy:             caller.UserID,
		ActivatedAt:             now,
	}

	sealed, err := s.box.Seal(secret, secretbox.Scope{MeetingID: int64(meeting.ID), Purpose: secretbox.PurposeStore})
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal session secret", "meeting_id", meeting.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	err = s.repoDB.StartMeeting(ctx, meeting, SealedSecret{
		MeetingID:               meeting.ID,
		Sealed:                  sealed,
		RotationIntervalSeconds: interval,
		CreatedAt:               now,
	})
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "session started concurrently", "date", scope.Date, "group_id", scope.GroupID)
		return nil, goerror.NewBusiness("Session is already active", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo start meeting", "meeting_id", meeting.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.cacheSecret(ctx, meeting.ID, secret)

	if err := s.repoMessaging.PublishSessionStarted(ctx, SessionStartedEvent{
		EventID:                 s.uuid.Generate(),
		Meeting:                 meeting,
		RotationIntervalSeconds: interval,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish session started", "meeting_id", meeting.ID, "error", err)
	}

	slog.InfoContext(ctx, "session started", "meeting_id", meeting.ID, "date", scope.Date, "group_id", scope.GroupID, "by_user_id", caller.UserID)

	return &SessionStartOutput{Meeting: meeting, Secret: secret}, nil
}

// rotationInterval applies the configured default and bounds.
func (s *Usecase) rotationInterval(requested int64) (int64, error) {
	if requested == 0 {
		requested = s.defaultInterval()
	}

	low := config.IntOr(s.cfg, keyMinInterval, 10)
	high := config.IntOr(s.cfg, keyMaxInterval, 300)
	if requested < low || requested > high {
		return 0, goerror.NewInvalidInput(nil, "rotation_interval_seconds",
			"must be between "+strconv.FormatInt(low, 10)+" and "+strconv.FormatInt(high, 10))
	}

	return requested, nil
}
