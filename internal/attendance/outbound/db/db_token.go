package db

import (
	"context"
	"errors"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/jackc/pgx/v5"
)

func (r qrTokenRow) entity() entity.QRToken {
	return entity.QRToken{
		ID:          entity.TokenID(r.ID),
		MeetingID:   entity.MeetingID(r.MeetingID),
		MeetingDate: r.MeetingDate,
		Token:       r.Token,
		GeneratedBy: entity.UserID(r.GeneratedBy),
		WindowStart: r.WindowStart,
		ExpiresAt:   r.ExpiresAt,
		Sequence:    r.Sequence,
		IsConsumed:  r.IsConsumed,
		CreatedAt:   r.CreatedAt,
	}
}

// EnsureQRToken reads the (meeting, window) row without locking. On a miss it
// locks the meeting row, checks again and inserts with the next sequence, so
// concurrent first scans of a window agree on one row.
func (s *DB) EnsureQRToken(ctx context.Context, in entity.QRToken) (_ *entity.QRToken, err error) {
	ctx, span := s.startSpan(ctx, "EnsureQRToken")
	defer func() { s.endSpan(span, err) }()

	row, err := s.query.GetQRTokenByWindow(ctx, int64(in.MeetingID), in.WindowStart)
	if err == nil {
		tok := row.entity()
		return &tok, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, s.mapError(err)
	}

	err = s.inTx(ctx, func(q *queries) error {
		if _, err := q.LockMeeting(ctx, int64(in.MeetingID)); err != nil {
			return err
		}

		existing, err := q.GetQRTokenByWindow(ctx, int64(in.MeetingID), in.WindowStart)
		if err == nil {
			row = existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		seq, err := q.BumpTokenSequence(ctx, int64(in.MeetingID))
		if err != nil {
			return err
		}

		row = qrTokenRow{
			ID:          int64(in.ID),
			MeetingID:   int64(in.MeetingID),
			MeetingDate: in.MeetingDate,
			Token:       in.Token,
			GeneratedBy: int64(in.GeneratedBy),
			WindowStart: in.WindowStart,
			ExpiresAt:   in.ExpiresAt,
			Sequence:    seq,
			CreatedAt:   in.CreatedAt,
		}
		return q.CreateQRToken(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	tok := row.entity()
	return &tok, nil
}

func (s *DB) MarkQRTokenConsumed(ctx context.Context, id entity.TokenID) (err error) {
	ctx, span := s.startSpan(ctx, "MarkQRTokenConsumed")
	defer func() { s.endSpan(span, err) }()

	err = s.mapError(s.query.MarkQRTokenConsumed(ctx, int64(id)))
	return err
}

func (s *DB) ListExpiredQRTokens(ctx context.Context, before int64, limit int) (_ []entity.QRToken, err error) {
	ctx, span := s.startSpan(ctx, "ListExpiredQRTokens")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.query.ListExpiredQRTokens(ctx, before, int32(limit))
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make([]entity.QRToken, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entity())
	}
	return out, nil
}

func (s *DB) DeleteQRTokens(ctx context.Context, ids []entity.TokenID) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteQRTokens")
	defer func() { s.endSpan(span, err) }()

	if len(ids) == 0 {
		return 0, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	n, err := s.query.DeleteQRTokens(ctx, raw)
	return n, s.mapError(err)
}
