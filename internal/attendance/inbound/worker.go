package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
)

const (
	keyCleanupEnabled  = "modules.attendance.cleanup.enabled"
	keyCleanupInterval = "modules.attendance.cleanup.interval_minutes"
)

// RegisterCleanupWorker runs the token cleanup on a ticker until ctx ends.
// Nothing is scheduled when the worker is disabled in config.
func RegisterCleanupWorker(ctx context.Context, cfg config.Config, routine *goroutine.Manager, uuid uid.StringID, uc ucMaintenance) {
	if !cfg.GetBool(keyCleanupEnabled) {
		slog.InfoContext(ctx, "attendance cleanup worker disabled")
		return
	}

	interval := config.DurationOr(cfg.GetMinute, cfg, keyCleanupInterval, time.Hour)

	w := &cleanupWorker{uc: uc, uuid: uuid, interval: interval}
	routine.Go(ctx, func(pCtx context.Context) error {
		slog.InfoContext(ctx, "Running job for attendance cleanup", "interval", interval.String())
		return w.run(pCtx)
	})
}

type cleanupWorker struct {
	uc       ucMaintenance
	uuid     uid.StringID
	interval time.Duration
}

func (w *cleanupWorker) run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.once(ctx)
		}
	}
}

// once never returns the error so a failed run leaves the ticker alive.
func (w *cleanupWorker) once(ctx context.Context) {
	ctx = instrument.SetCorrelationID(ctx, w.uuid.Generate())

	if _, err := w.uc.Cleanup(ctx); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "attendance cleanup failed", "error", err)
	}
}
