package db

import (
	"context"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
)

func (r meetingRow) entity() *entity.Meeting {
	m := &entity.Meeting{
		ID:                      entity.MeetingID(r.ID),
		Date:                    r.MeetingDate,
		GroupID:                 entity.GroupID(r.GroupID),
		IsActive:                r.IsActive,
		RotationIntervalSeconds: int64(r.RotationIntervalSeconds),
		TokenSequence:           r.TokenSequence,
		ActivatedBy:             entity.UserID(r.ActivatedBy),
		ActivatedAt:             r.ActivatedAt,
	}
	if r.DeactivatedBy.Valid {
		m.DeactivatedBy = entity.UserID(r.DeactivatedBy.Int64)
	}
	if r.DeactivatedAt.Valid {
		at := r.DeactivatedAt.Time
		m.DeactivatedAt = &at
	}
	return m
}

func (s *DB) GetActiveMeeting(ctx context.Context, scope entity.Scope) (_ *entity.Meeting, err error) {
	ctx, span := s.startSpan(ctx, "GetActiveMeeting")
	defer func() { s.endSpan(span, err) }()

	row, err := s.query.GetActiveMeeting(ctx, scope.Date, int64(scope.GroupID))
	if err != nil {
		return nil, s.mapError(err)
	}

	return row.entity(), nil
}

func (s *DB) GetSessionSecret(ctx context.Context, meetingID entity.MeetingID) (_ *usecase.SealedSecret, err error) {
	ctx, span := s.startSpan(ctx, "GetSessionSecret")
	defer func() { s.endSpan(span, err) }()

	row, err := s.query.GetSessionSecret(ctx, int64(meetingID))
	if err != nil {
		return nil, s.mapError(err)
	}

	return &usecase.SealedSecret{
		MeetingID:               entity.MeetingID(row.MeetingID),
		Sealed:                  row.SealedSecret,
		RotationIntervalSeconds: int64(row.RotationIntervalSeconds),
		CreatedAt:               row.CreatedAt,
	}, nil
}

func (s *DB) StartMeeting(ctx context.Context, m entity.Meeting, secret usecase.SealedSecret) (err error) {
	ctx, span := s.startSpan(ctx, "StartMeeting")
	defer func() { s.endSpan(span, err) }()

	err = s.inTx(ctx, func(q *queries) error {
		if err := q.CreateMeeting(ctx, createMeetingParams{
			ID:                      int64(m.ID),
			MeetingDate:             m.Date,
			GroupID:                 int64(m.GroupID),
			RotationIntervalSeconds: int32(m.RotationIntervalSeconds),
			ActivatedBy:             int64(m.ActivatedBy),
			ActivatedAt:             m.ActivatedAt,
		}); err != nil {
			return err
		}

		return q.CreateSessionSecret(ctx, int64(m.ID), secret.Sealed, int32(secret.RotationIntervalSeconds), secret.CreatedAt)
	})
	return err
}

func (s *DB) StopMeeting(ctx context.Context, id entity.MeetingID, by entity.UserID, at time.Time) (_ *entity.Meeting, err error) {
	ctx, span := s.startSpan(ctx, "StopMeeting")
	defer func() { s.endSpan(span, err) }()

	var row meetingRow
	err = s.inTx(ctx, func(q *queries) error {
		var err error
		if row, err = q.DeactivateMeeting(ctx, int64(id), int64(by), at); err != nil {
			return err
		}
		return q.DeleteSessionSecret(ctx, int64(id))
	})
	if err != nil {
		return nil, err
	}

	return row.entity(), nil
}

func (s *DB) DeleteOrphanSecrets(ctx context.Context) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "DeleteOrphanSecrets")
	defer func() { s.endSpan(span, err) }()

	n, err := s.query.DeleteOrphanSecrets(ctx)
	return n, s.mapError(err)
}
