package usecase

import (
	"context"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrimage"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type (
	SessionTokenInput struct {
		MeetingDate string `validate:"omitempty,meetingdate"`
		GroupID     int64  `validate:"gte=0"`
	}

	SessionQRInput struct {
		MeetingDate string `validate:"omitempty,meetingdate"`
		GroupID     int64  `validate:"gte=0"`
		Size        int    `validate:"gte=0"`
	}

	SessionQROutput struct {
		Token entity.QRToken
		PNG   []byte
	}
)

// SessionToken returns the token of the current window together with its
// audit row, creating the row on first use.
func (s *Usecase) SessionToken(ctx context.Context, in SessionTokenInput) (*entity.QRToken, error) {
	ctx, span := s.startSpan(ctx, "SessionToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.currentToken(ctx, s.scope(in.MeetingDate, in.GroupID))
}

// SessionQR renders the current token as a PNG QR code.
func (s *Usecase) SessionQR(ctx context.Context, in SessionQRInput) (*SessionQROutput, error) {
	ctx, span := s.startSpan(ctx, "SessionQR")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	tok, err := s.currentToken(ctx, s.scope(in.MeetingDate, in.GroupID))
	if err != nil {
		return nil, err
	}

	png, err := qrimage.PNG(tok.Token, qrimage.ClampSize(in.Size))
	if err != nil {
		slog.ErrorContext(ctx, "failed to render qr code", "meeting_id", tok.MeetingID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &SessionQROutput{Token: *tok, PNG: png}, nil
}

func (s *Usecase) currentToken(ctx context.Context, scope entity.Scope) (*entity.QRToken, error) {
	caller, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceSecret, constant.PermActRead, scope.GroupID, groupManage)
	if err != nil {
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

	ws := qrtoken.WindowStart(s.clock.Now().UnixMilli(), m.RotationIntervalSeconds)
	return s.ensureToken(ctx, m, secret, ws, caller.UserID)
}
