package app

import (
	"log/slog"
	"os"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance"
	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.attendance.enabled") {
		if err := attendance.New(attendance.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			CacheConn:  a.cacheConn,
			Goroutine:  a.goroutine,
			Authorizer: a.authz,
			Router:     a.router,
			Messaging:  a.messaging,
			Storage:    a.storage,
			SecretBox:  a.secretBox,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module attendance", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.livestatus.enabled") {
		if err := livestatus.New(livestatus.Dependency{
			Ctx:         a.ctx,
			Goroutine:   a.goroutine,
			Router:      a.router,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Authorizer:  a.authz,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Clock:       a.clock,
			Validator:   a.validator,
		}); err != nil {
			slog.Error("failed to init module livestatus", "error", err)
			os.Exit(1)
		}
	}
}
