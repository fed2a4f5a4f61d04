package usecase

import (
	"context"
	"log/slog"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/constant"
)

type ArchiveListInput struct {
	MeetingDate string `validate:"required,meetingdate"`
}

func (s *Usecase) ArchiveList(ctx context.Context, in ArchiveListInput) ([]ArchiveObject, error) {
	ctx, span := s.startSpan(ctx, "ArchiveList")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.authenticatedAndAuthorized(ctx, constant.PermAttendanceArchive, constant.PermActRead, 0, groupManage); err != nil {
		return nil, err
	}

	objs, err := s.repoArchive.ListTokens(ctx, in.MeetingDate)
	if err != nil {
		slog.ErrorContext(ctx, "failed to archive list tokens", "date", in.MeetingDate, "error", err)
		return nil, goerror.NewServer(err)
	}

	return objs, nil
}
