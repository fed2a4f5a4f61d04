package inbound

import (
	"context"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
)

type ucSession interface {
	SessionStart(ctx context.Context, in usecase.SessionStartInput) (*usecase.SessionStartOutput, error)
	SessionStop(ctx context.Context, in usecase.SessionStopInput) (*entity.Meeting, error)
	SessionStatus(ctx context.Context, in usecase.SessionStatusInput) (*usecase.SessionStatusOutput, error)
	SessionSecret(ctx context.Context, in usecase.SessionSecretInput) (*usecase.SessionSecretOutput, error)
	SessionToken(ctx context.Context, in usecase.SessionTokenInput) (*entity.QRToken, error)
	SessionQR(ctx context.Context, in usecase.SessionQRInput) (*usecase.SessionQROutput, error)
}

type ucMaintenance interface {
	Cleanup(ctx context.Context) (*usecase.CleanupOutput, error)
}

type uc interface {
	ucSession
	ucMaintenance

	ScanSubmit(ctx context.Context, in usecase.ScanSubmitInput) (*usecase.ScanSubmitOutput, error)
	ArchiveList(ctx context.Context, in usecase.ArchiveListInput) ([]usecase.ArchiveObject, error)
}
