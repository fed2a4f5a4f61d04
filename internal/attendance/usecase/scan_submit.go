package usecase

import (
	"context"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type (
	ScanSubmitInput struct {
		Token       string `validate:"required,qrtoken"`
		MeetingDate string `validate:"omitempty,meetingdate"`
		GroupID     int64  `validate:"gte=0"`
	}

	ScanSubmitOutput struct {
		Outcome    entity.RecordOutcome
		Attendance entity.Attendance
		Token      entity.QRToken
	}
)

// ScanSubmit validates a scanned token against the active session of the
// scope and records attendance for the caller.
func (s *Usecase) ScanSubmit(ctx context.Context, in ScanSubmitInput) (*ScanSubmitOutput, error) {
	ctx, span := s.startSpan(ctx, "ScanSubmit")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	receivedAt := s.clock.Now()
	scope := s.scope(in.MeetingDate, in.GroupID)

	caller, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceScan, constant.PermActWrite, scope.GroupID, groupJoin)
	if err != nil {
		return nil, err
	}

	m, err := s.activeMeeting(ctx, scope)
	if err != nil {
		slog.WarnContext(ctx, "scan rejected", "user_id", caller.UserID, "reason", entity.RejectSessionNotActive.String())
		return nil, err
	}

	secret, err := s.loadSecret(ctx, m)
	if err != nil {
		return nil, err
	}

	v := qrtoken.Verify(secret, in.Token, receivedAt.UnixMilli(), m.RotationIntervalSeconds, s.staleWindows())
	if reason := rejectReason(v.Verdict); reason != entity.RejectNone {
		slog.WarnContext(ctx, "scan rejected", "meeting_id", m.ID, "user_id", caller.UserID, "reason", reason.String(), "lag", v.Lag)
		return nil, rejectError(reason)
	}

	tok, err := s.ensureToken(ctx, m, secret, v.WindowStart, m.ActivatedBy)
	if err != nil {
		return nil, err
	}

	group := scope.GroupID
	if group == entity.AllGroups {
		group = caller.GroupID
	}

	outcome, att, err := s.RecordScan(ctx, RecordScanInput{
		UserID:      caller.UserID,
		GroupID:     group,
		MeetingID:   m.ID,
		MeetingDate: m.Date,
		Token:       *tok,
		ScannedAt:   receivedAt,
	})
	if err != nil {
		return nil, err
	}

	return &ScanSubmitOutput{Outcome: outcome, Attendance: *att, Token: *tok}, nil
}

func rejectReason(v qrtoken.Verdict) entity.RejectReason {
	switch v {
	case qrtoken.VerdictAccepted:
		return entity.RejectNone
	case qrtoken.VerdictExpired:
		return entity.RejectExpired
	default:
		return entity.RejectTokenMismatch
	}
}

func rejectError(r entity.RejectReason) error {
	switch r {
	case entity.RejectExpired:
		return goerror.NewBusiness("QR code has expired", goerror.CodeExpired, "reason", r.String())
	case entity.RejectSessionNotActive:
		return errNotActive
	default:
		return goerror.NewBusiness("QR code is not valid", goerror.CodeInvalidInput, "reason", r.String())
	}
}
