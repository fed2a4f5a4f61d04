package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/inbound"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/outbound/archive"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/outbound/cache"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/outbound/db"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/outbound/mq"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/authz"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/secretbox"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/storage"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
)

type Dependency struct {
	// Ctx bounds the background workers; they are not started when nil.
	Ctx        context.Context
	DBConn     *pgxpool.Pool              `validate:"required"`
	CacheConn  redis.Cmdable              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Authorizer authz.Authorizer           `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Storage    storage.Storage            `validate:"required"`
	SecretBox  secretbox.Box              `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	loc, err := time.LoadLocation(config.StringOr(dep.Config, "app.timezone", "Local"))
	if err != nil {
		return fmt.Errorf("attendance: load timezone: %w", err)
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoCache := cache.NewCache(dep.CacheConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)
	repoArchive := archive.NewArchive(
		dep.Storage,
		config.StringOr(dep.Config, "modules.attendance.archive.bucket", "attendance"),
		config.DurationOr(dep.Config.GetMinute, dep.Config, "modules.attendance.archive.presign_minutes", 15*time.Minute),
		dep.Instrument,
	)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoCache:     repoCache,
		RepoMessaging: repoMsg,
		RepoArchive:   repoArchive,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Authorizer:    dep.Authorizer,
		SecretBox:     dep.SecretBox,
		UID:           dep.UID,
		UUID:          dep.UUID,
		Clock:         dep.Clock,
		Location:      loc,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx != nil {
		inbound.RegisterCleanupWorker(dep.Ctx, dep.Config, dep.Goroutine, dep.UUID, uc)
	}

	return nil
}
