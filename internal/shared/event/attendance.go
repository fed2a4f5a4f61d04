package event

const SessionStartedDestination string = "attendance_session_started"
const SessionStoppedDestination string = "attendance_session_stopped"
const ScanRecordedDestination string = "attendance_scan_recorded"

// ConsumerLivestatus is the queue group / channel / subscription suffix the
// livestatus module consumes with.
const ConsumerLivestatus string = "attendance_livestatus"

// HeaderCorrelationID carries the originating request's correlation id.
const HeaderCorrelationID string = "cID"

type SessionStartedMessage struct {
	EventID                 string `json:"event_id"`
	MeetingID               int64  `json:"meeting_id,string"`
	MeetingDate             string `json:"meeting_date"`
	GroupID                 int64  `json:"group_id,string"`
	ActivatedBy             int64  `json:"activated_by,string"`
	RotationIntervalSeconds int64  `json:"rotation_interval_seconds"`
	ActivatedAt             int64  `json:"activated_at"`
}

type SessionStoppedMessage struct {
	EventID       string `json:"event_id"`
	MeetingID     int64  `json:"meeting_id,string"`
	MeetingDate   string `json:"meeting_date"`
	GroupID       int64  `json:"group_id,string"`
	DeactivatedBy int64  `json:"deactivated_by,string"`
	DeactivatedAt int64  `json:"deactivated_at"`
}

type ScanRecordedMessage struct {
	EventID     string `json:"event_id"`
	MeetingID   int64  `json:"meeting_id,string"`
	MeetingDate string `json:"meeting_date"`
	GroupID     int64  `json:"group_id,string"`
	UserID      int64  `json:"user_id,string"`
	ScannedAt   int64  `json:"scanned_at"`
}
