package inbound

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
)

type SessionStartRequest struct {
	MeetingDate             string `json:"meeting_date"`
	GroupID                 int64  `json:"group_id,string,omitempty"`
	RotationIntervalSeconds int64  `json:"rotation_interval_seconds,omitempty"`
}

type SessionStartResponse struct {
	MeetingID               string    `json:"meeting_id"`
	MeetingDate             string    `json:"meeting_date"`
	GroupID                 string    `json:"group_id"`
	Secret                  string    `json:"secret"`
	RotationIntervalSeconds int64     `json:"rotation_interval_seconds"`
	ActivatedAt             time.Time `json:"activated_at"`
}

func (SessionStartResponse) Message() string { return "Session started" }

func (SessionStartResponse) StatusCode() int { return http.StatusCreated }

type SessionStopRequest struct {
	MeetingDate string `json:"meeting_date"`
	GroupID     int64  `json:"group_id,string,omitempty"`
}

type SessionStopResponse struct {
	MeetingID     string     `json:"meeting_id"`
	MeetingDate   string     `json:"meeting_date"`
	GroupID       string     `json:"group_id"`
	DeactivatedAt *time.Time `json:"deactivated_at"`
}

func (SessionStopResponse) Message() string { return "Session stopped" }

type SessionStatusResponse struct {
	IsActive                bool       `json:"is_active"`
	MeetingDate             string     `json:"meeting_date"`
	GroupID                 string     `json:"group_id"`
	RotationIntervalSeconds int64      `json:"rotation_interval_seconds,omitempty"`
	ActivatedAt             *time.Time `json:"activated_at,omitempty"`
}

type SessionSecretResponse struct {
	MeetingID               string `json:"meeting_id"`
	MeetingDate             string `json:"meeting_date"`
	Secret                  string `json:"secret"`
	RotationIntervalSeconds int64  `json:"rotation_interval_seconds"`
	ServerTimeMS            int64  `json:"server_time_ms"`
}

type SessionTokenResponse struct {
	Token       string `json:"token"`
	WindowStart int64  `json:"window_start"`
	ExpiresAt   int64  `json:"expires_at"`
	Sequence    int64  `json:"sequence"`
}

type ScanSubmitRequest struct {
	Token       string `json:"token"`
	MeetingDate string `json:"meeting_date"`
	GroupID     int64  `json:"group_id,string,omitempty"`
}

type ScanSubmitResponse struct {
	Outcome     string    `json:"outcome"`
	MeetingDate string    `json:"meeting_date"`
	Status      string    `json:"status"`
	ScannedAt   time.Time `json:"scanned_at"`
	Sequence    int64     `json:"sequence"`

	created bool
}

func (r ScanSubmitResponse) Message() string {
	if r.created {
		return "Attendance recorded"
	}
	return "Attendance already recorded"
}

func (r ScanSubmitResponse) StatusCode() int {
	if r.created {
		return http.StatusCreated
	}
	return http.StatusOK
}

type ArchiveItem struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type ArchiveListResponse struct {
	Items []ArchiveItem `json:"items"`
}

func (r ArchiveListResponse) Meta() map[string]any { return map[string]any{"count": len(r.Items)} }

func idString[T ~int64](v T) string { return strconv.FormatInt(int64(v), 10) }

func newScanSubmitResponse(outcome entity.RecordOutcome, a entity.Attendance, seq int64) ScanSubmitResponse {
	return ScanSubmitResponse{
		Outcome:     outcome.String(),
		MeetingDate: a.MeetingDate,
		Status:      string(a.Status),
		ScannedAt:   a.ScannedAt,
		Sequence:    seq,
		created:     outcome == entity.RecordCreated,
	}
}
