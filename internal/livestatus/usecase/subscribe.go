package usecase

import (
	"context"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type SubscribeInput struct {
	MeetingDate string `validate:"omitempty,meetingdate"`
	GroupID     int64  `validate:"gte=0"`
}

// Subscribe registers a stream for the scope and closes it when ctx is done.
// A caller bound to a group always watches that group; asking for every
// group narrows to it and asking for another group is forbidden.
func (s *Usecase) Subscribe(ctx context.Context, in SubscribeInput) (<-chan entity.Event, error) {
	ctx, span := s.startSpan(ctx, "Subscribe")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.authz.Authorize(ctx, clm.Role, constant.PermLivestatus, constant.PermActRead)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	scope := entity.Scope{Date: in.MeetingDate, GroupID: in.GroupID}
	if scope.Date == "" {
		scope.Date = s.clock.Now().In(s.location).Format(validator.DateLayout)
	}
	if scope.GroupID == 0 && clm.GroupID != 0 && clm.Role != constant.RoleSuperAdmin {
		scope.GroupID = clm.GroupID
	}
	if scope.GroupID != clm.GroupID && clm.GroupID != 0 && clm.Role != constant.RoleSuperAdmin {
		return nil, goerror.NewBusiness("Group not allowed", goerror.CodeForbidden)
	}

	sub := &subscriber{scope: scope, ch: make(chan entity.Event, s.buffer)}
	s.add(sub)

	slog.InfoContext(ctx, "livestatus subscribed", "user_id", clm.UserID, "date", scope.Date, "group_id", scope.GroupID)

	go func() {
		<-ctx.Done()
		s.remove(sub)
		close(sub.ch)
	}()

	return sub.ch, nil
}
