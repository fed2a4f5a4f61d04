package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/samber/lo"
)

type CleanupOutput struct {
	Archived      []string
	PurgedTokens  int64
	OrphanSecrets int64
}

// Cleanup archives token audit rows that expired before the retention period
// and purges them in batches, then removes secrets left behind by inactive
// meetings. A batch whose archive upload fails is kept for the next run.
func (s *Usecase) Cleanup(ctx context.Context) (*CleanupOutput, error) {
	ctx, span := s.startSpan(ctx, "Cleanup")
	defer span.End()

	retention := time.Duration(config.IntOr(s.cfg, keyRetentionDays, 30)) * 24 * time.Hour
	batch := int(config.IntOr(s.cfg, keyCleanupBatch, 500))
	if batch <= 0 {
		batch = 500
	}
	before := s.clock.Now().Add(-retention).Unix()

	out := &CleanupOutput{}
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		tokens, err := s.repoDB.ListExpiredQRTokens(ctx, before, batch)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo list expired qr tokens", "before", before, "error", err)
			return out, goerror.NewServer(err)
		}
		if len(tokens) == 0 {
			break
		}

		for date, group := range lo.GroupBy(tokens, func(t entity.QRToken) string { return t.MeetingDate }) {
			key, err := s.repoArchive.StoreTokens(ctx, date, group)
			if err != nil {
				slog.ErrorContext(ctx, "failed to archive store tokens", "date", date, "count", len(group), "error", err)
				return out, goerror.NewServer(err)
			}
			out.Archived = append(out.Archived, key)
		}

		ids := lo.Map(tokens, func(t entity.QRToken, _ int) entity.TokenID { return t.ID })
		n, err := s.repoDB.DeleteQRTokens(ctx, ids)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo delete qr tokens", "count", len(ids), "error", err)
			return out, goerror.NewServer(err)
		}
		out.PurgedTokens += n

		if n == 0 || len(tokens) < batch {
			break
		}
	}

	n, err := s.repoDB.DeleteOrphanSecrets(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete orphan secrets", "error", err)
		return out, goerror.NewServer(err)
	}
	out.OrphanSecrets = n

	slog.InfoContext(ctx, "attendance cleanup finished", "archived", len(out.Archived), "purged_tokens", out.PurgedTokens, "orphan_secrets", out.OrphanSecrets)

	return out, nil
}
