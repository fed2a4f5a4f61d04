package db

import (
	"context"
	"errors"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// RecordAttendance inserts unless (user, date) already has a row. The insert
// and the check are one statement, so racing submissions see one winner.
// On conflict the stored row is returned with false.
func (s *DB) RecordAttendance(ctx context.Context, in entity.Attendance) (_ *entity.Attendance, _ bool, err error) {
	ctx, span := s.startSpan(ctx, "RecordAttendance")
	defer func() { s.endSpan(span, err) }()

	_, err = s.query.CreateAttendance(ctx, createAttendanceParams{
		ID:          in.ID,
		UserID:      int64(in.UserID),
		GroupID:     int64(in.GroupID),
		MeetingID:   int64(in.MeetingID),
		MeetingDate: in.MeetingDate,
		ScannedAt:   in.ScannedAt,
		QRTokenID:   pgtype.Int8{Int64: int64(in.QRTokenID), Valid: in.QRTokenID != 0},
		Status:      string(in.Status),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		var row attendanceRow
		row, err = s.query.GetAttendanceByUserDate(ctx, int64(in.UserID), in.MeetingDate)
		if err != nil {
			return nil, false, s.mapError(err)
		}
		return toAttendance(row), false, nil
	}
	if err != nil {
		return nil, false, s.mapError(err)
	}

	return &in, true, nil
}

func toAttendance(row attendanceRow) *entity.Attendance {
	return &entity.Attendance{
		ID:          row.ID,
		UserID:      entity.UserID(row.UserID),
		GroupID:     entity.GroupID(row.GroupID),
		MeetingID:   entity.MeetingID(row.MeetingID),
		MeetingDate: row.MeetingDate,
		ScannedAt:   row.ScannedAt,
		QRTokenID:   entity.TokenID(row.QRTokenID.Int64),
		Status:      entity.AttendanceStatus(row.Status),
	}
}
