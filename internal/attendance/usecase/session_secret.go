package usecase

import (
	"context"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type (
	SessionSecretInput struct {
		MeetingDate string `validate:"omitempty,meetingdate"`
		GroupID     int64  `validate:"gte=0"`
	}

	SessionSecretOutput struct {
		Meeting      entity.Meeting
		Secret       qrtoken.Secret
		ServerTimeMS int64
	}
)

// SessionSecret hands the active secret to a display device so it can derive
// tokens locally. ServerTimeMS lets the device estimate its clock offset.
func (s *Usecase) SessionSecret(ctx context.Context, in SessionSecretInput) (*SessionSecretOutput, error) {
	ctx, span := s.startSpan(ctx, "SessionSecret")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	scope := s.scope(in.MeetingDate, in.GroupID)
	if _, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceSecret, constant.PermActRead, scope.GroupID, groupManage); err != nil {
		return nil, err
	}

	m, err := s.activeMeeting(ctx, scope)
	if err != nil {
		return nil, err
	}

	secret, err := s.loadSecret(ctx, m)
	if err != nil {
		return nil, err
	}

	return &SessionSecretOutput{
		Meeting:      *m,
		Secret:       secret,
		ServerTimeMS: s.clock.Now().UnixMilli(),
	}, nil
}
