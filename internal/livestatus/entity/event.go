package entity

type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventSessionStopped EventType = "session_stopped"
	EventScanRecorded   EventType = "scan_recorded"
)

// Event is one live update pushed to websocket subscribers.
type Event struct {
	ID                      string    `json:"event_id"`
	Type                    EventType `json:"type"`
	MeetingID               int64     `json:"meeting_id,string"`
	MeetingDate             string    `json:"meeting_date"`
	GroupID                 int64     `json:"group_id,string"`
	UserID                  int64     `json:"user_id,string,omitempty"`
	RotationIntervalSeconds int64     `json:"rotation_interval_seconds,omitempty"`
	// At is when the change happened, in Unix milliseconds.
	At int64 `json:"at"`
}

// Scope is what a subscriber watches.
type Scope struct {
	Date    string
	GroupID int64
}

// Matches reports whether e concerns the watched scope. Group zero on either
// side stands for every group of the date.
func (s Scope) Matches(e Event) bool {
	if s.Date != e.MeetingDate {
		return false
	}
	return s.GroupID == 0 || e.GroupID == 0 || s.GroupID == e.GroupID
}
