package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries { return &queries{db: db} }

func (q *queries) withTx(tx pgx.Tx) *queries { return &queries{db: tx} }

const meetingColumns = `id, to_char(meeting_date, 'YYYY-MM-DD'), group_id, is_active, rotation_interval_seconds,
	token_sequence, activated_by, activated_at, deactivated_by, deactivated_at`

type meetingRow struct {
	ID                      int64
	MeetingDate             string
	GroupID                 int64
	IsActive                bool
	RotationIntervalSeconds int32
	TokenSequence           int64
	ActivatedBy             int64
	ActivatedAt             time.Time
	DeactivatedBy           pgtype.Int8
	DeactivatedAt           pgtype.Timestamptz
}

func scanMeeting(row pgx.Row) (meetingRow, error) {
	var m meetingRow
	err := row.Scan(&m.ID, &m.MeetingDate, &m.GroupID, &m.IsActive, &m.RotationIntervalSeconds,
		&m.TokenSequence, &m.ActivatedBy, &m.ActivatedAt, &m.DeactivatedBy, &m.DeactivatedAt)
	return m, err
}

const getActiveMeeting = `SELECT ` + meetingColumns + `
FROM attendance_meetings
WHERE meeting_date = $1::date AND group_id = $2 AND is_active`

func (q *queries) GetActiveMeeting(ctx context.Context, date string, groupID int64) (meetingRow, error) {
	return scanMeeting(q.db.QueryRow(ctx, getActiveMeeting, date, groupID))
}

const lockMeeting = `SELECT ` + meetingColumns + `
FROM attendance_meetings
WHERE id = $1
FOR UPDATE`

func (q *queries) LockMeeting(ctx context.Context, id int64) (meetingRow, error) {
	return scanMeeting(q.db.QueryRow(ctx, lockMeeting, id))
}

const createMeeting = `INSERT INTO attendance_meetings
	(id, meeting_date, group_id, is_active, rotation_interval_seconds, token_sequence, activated_by, activated_at)
VALUES ($1, $2::date, $3, TRUE, $4, 0, $5, $6)`

type createMeetingParams struct {
	ID                      int64
	MeetingDate             string
	GroupID                 int64
	RotationIntervalSeconds int32
	ActivatedBy             int64
	ActivatedAt             time.Time
}

func (q *queries) CreateMeeting(ctx context.Context, arg createMeetingParams) error {
	_, err := q.db.Exec(ctx, createMeeting, arg.ID, arg.MeetingDate, arg.GroupID,
		arg.RotationIntervalSeconds, arg.ActivatedBy, arg.ActivatedAt)
	return err
}

const deactivateMeeting = `UPDATE attendance_meetings
SET is_active = FALSE, deactivated_by = $2, deactivated_at = GREATEST($3, activated_at)
WHERE id = $1 AND is_active
RETURNING ` + meetingColumns

func (q *queries) DeactivateMeeting(ctx context.Context, id, by int64, at time.Time) (meetingRow, error) {
	return scanMeeting(q.db.QueryRow(ctx, deactivateMeeting, id, by, at))
}

const bumpTokenSequence = `UPDATE attendance_meetings
SET token_sequence = token_sequence + 1
WHERE id = $1
RETURNING token_sequence`

func (q *queries) BumpTokenSequence(ctx context.Context, id int64) (int64, error) {
	var seq int64
	err := q.db.QueryRow(ctx, bumpTokenSequence, id).Scan(&seq)
	return seq, err
}

const createSessionSecret = `INSERT INTO attendance_session_secrets
	(meeting_id, sealed_secret, rotation_interval_seconds, created_at)
VALUES ($1, $2, $3, $4)`

func (q *queries) CreateSessionSecret(ctx context.Context, meetingID int64, sealed []byte, interval int32, at time.Time) error {
	_, err := q.db.Exec(ctx, createSessionSecret, meetingID, sealed, interval, at)
	return err
}

const getSessionSecret = `SELECT s.meeting_id, s.sealed_secret, s.rotation_interval_seconds, s.created_at
FROM attendance_session_secrets s
JOIN attendance_meetings m ON m.id = s.meeting_id
WHERE s.meeting_id = $1 AND m.is_active`

type sessionSecretRow struct {
	MeetingID               int64
	SealedSecret            []byte
	RotationIntervalSeconds int32
	CreatedAt               time.Time
}

func (q *queries) GetSessionSecret(ctx context.Context, meetingID int64) (sessionSecretRow, error) {
	var r sessionSecretRow
	err := q.db.QueryRow(ctx, getSessionSecret, meetingID).
		Scan(&r.MeetingID, &r.SealedSecret, &r.RotationIntervalSeconds, &r.CreatedAt)
	return r, err
}

const deleteSessionSecret = `DELETE FROM attendance_session_secrets WHERE meeting_id = $1`

func (q *queries) DeleteSessionSecret(ctx context.Context, meetingID int64) error {
	_, err := q.db.Exec(ctx, deleteSessionSecret, meetingID)
	return err
}

const deleteOrphanSecrets = `DELETE FROM attendance_session_secrets s
USING attendance_meetings m
WHERE m.id = s.meeting_id AND NOT m.is_active`

func (q *queries) DeleteOrphanSecrets(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrphanSecrets)
	return tag.RowsAffected(), err
}

const qrTokenColumns = `id, meeting_id, to_char(meeting_date, 'YYYY-MM-DD'), token, generated_by,
	window_start, expires_at, sequence, is_consumed, created_at`

type qrTokenRow struct {
	ID          int64
	MeetingID   int64
	MeetingDate string
	Token       string
	GeneratedBy int64
	WindowStart int64
	ExpiresAt   int64
	Sequence    int64
	IsConsumed  bool
	CreatedAt   time.Time
}

func scanQRToken(row pgx.Row) (qrTokenRow, error) {
	var t qrTokenRow
	err := row.Scan(&t.ID, &t.MeetingID, &t.MeetingDate, &t.Token, &t.GeneratedBy,
		&t.WindowStart, &t.ExpiresAt, &t.Sequence, &t.IsConsumed, &t.CreatedAt)
	return t, err
}

const getQRTokenByWindow = `SELECT ` + qrTokenColumns + `
FROM attendance_qr_tokens
WHERE meeting_id = $1 AND window_start = $2`

func (q *queries) GetQRTokenByWindow(ctx context.Context, meetingID, windowStart int64) (qrTokenRow, error) {
	return scanQRToken(q.db.QueryRow(ctx, getQRTokenByWindow, meetingID, windowStart))
}

const createQRToken = `INSERT INTO attendance_qr_tokens
	(id, meeting_id, meeting_date, token, generated_by, window_start, expires_at, sequence, is_consumed, created_at)
VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, FALSE, $9)`

func (q *queries) CreateQRToken(ctx context.Context, t qrTokenRow) error {
	_, err := q.db.Exec(ctx, createQRToken, t.ID, t.MeetingID, t.MeetingDate, t.Token, t.GeneratedBy,
		t.WindowStart, t.ExpiresAt, t.Sequence, t.CreatedAt)
	return err
}

const markQRTokenConsumed = `UPDATE attendance_qr_tokens SET is_consumed = TRUE WHERE id = $1 AND NOT is_consumed`

func (q *queries) MarkQRTokenConsumed(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, markQRTokenConsumed, id)
	return err
}

const listExpiredQRTokens = `SELECT ` + qrTokenColumns + `
FROM attendance_qr_tokens
WHERE expires_at < $1
ORDER BY expires_at, id
LIMIT $2`

func (q *queries) ListExpiredQRTokens(ctx context.Context, before int64, limit int32) ([]qrTokenRow, error) {
	rows, err := q.db.Query(ctx, listExpiredQRTokens, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []qrTokenRow
	for rows.Next() {
		t, err := scanQRToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const deleteQRTokens = `DELETE FROM attendance_qr_tokens WHERE id = ANY($1::bigint[])`

func (q *queries) DeleteQRTokens(ctx context.Context, ids []int64) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteQRTokens, ids)
	return tag.RowsAffected(), err
}

const createAttendance = `INSERT INTO attendance_records
	(id, user_id, group_id, meeting_id, meeting_date, scanned_at, qr_token_id, status)
VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)
ON CONFLICT (user_id, meeting_date) DO NOTHING
RETURNING id`

type createAttendanceParams struct {
	ID          int64
	UserID      int64
	GroupID     int64
	MeetingID   int64
	MeetingDate string
	ScannedAt   time.Time
	QRTokenID   pgtype.Int8
	Status      string
}

func (q *queries) CreateAttendance(ctx context.Context, arg createAttendanceParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, createAttendance, arg.ID, arg.UserID, arg.GroupID, arg.MeetingID,
		arg.MeetingDate, arg.ScannedAt, arg.QRTokenID, arg.Status).Scan(&id)
	return id, err
}

const attendanceColumns = `id, user_id, group_id, meeting_id, to_char(meeting_date, 'YYYY-MM-DD'), scanned_at, qr_token_id, status`

type attendanceRow struct {
	ID          int64
	UserID      int64
	GroupID     int64
	MeetingID   int64
	MeetingDate string
	ScannedAt   time.Time
	QRTokenID   pgtype.Int8
	Status      string
}

const getAttendanceByUserDate = `SELECT ` + attendanceColumns + `
FROM attendance_records
WHERE user_id = $1 AND meeting_date = $2::date`

func (q *queries) GetAttendanceByUserDate(ctx context.Context, userID int64, date string) (attendanceRow, error) {
	var a attendanceRow
	err := q.db.QueryRow(ctx, getAttendanceByUserDate, userID, date).Scan(&a.ID, &a.UserID, &a.GroupID,
		&a.MeetingID, &a.MeetingDate, &a.ScannedAt, &a.QRTokenID, &a.Status)
	return a, err
}
