package entity

import (
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
)

type (
	UserID    int64
	GroupID   int64
	MeetingID int64
	TokenID   int64
)

// AllGroups scopes a meeting to every group.
const AllGroups GroupID = 0

// Scope identifies the meeting a request targets.
type Scope struct {
	Date    string // YYYY-MM-DD in the configured time zone
	GroupID GroupID
}

type Meeting struct {
	ID                      MeetingID
	Date                    string
	GroupID                 GroupID
	IsActive                bool
	RotationIntervalSeconds int64
	TokenSequence           int64
	ActivatedBy             UserID
	ActivatedAt             time.Time
	DeactivatedBy           UserID
	DeactivatedAt           *time.Time
}

// Scope returns the date and group of the meeting.
func (m Meeting) Scope() Scope { return Scope{Date: m.Date, GroupID: m.GroupID} }

type SessionSecret struct {
	MeetingID               MeetingID
	Secret                  qrtoken.Secret
	RotationIntervalSeconds int64
	CreatedAt               time.Time
}

// QRToken is the audit row for one rotation window of a meeting.
type QRToken struct {
	ID          TokenID
	MeetingID   MeetingID
	MeetingDate string
	Token       string
	GeneratedBy UserID
	WindowStart int64 // Unix seconds
	ExpiresAt   int64 // Unix seconds
	Sequence    int64
	IsConsumed  bool
	CreatedAt   time.Time
}

type Attendance struct {
	ID          int64
	UserID      UserID
	GroupID     GroupID
	MeetingID   MeetingID
	MeetingDate string
	ScannedAt   time.Time
	QRTokenID   TokenID
	Status      AttendanceStatus
}

// Identity is the authenticated caller.
type Identity struct {
	UserID  UserID
	Role    Role
	GroupID GroupID // zero when the caller is not bound to a group
}

// CanAccess reports whether the caller may act on group g. Super admins and
// callers without a group binding are unrestricted.
func (i Identity) CanAccess(g GroupID) bool {
	return i.Role == RoleSuperAdmin || i.GroupID == 0 || i.GroupID == g
}

// CanJoin is CanAccess widened to sessions open to every group.
func (i Identity) CanJoin(g GroupID) bool {
	return g == AllGroups || i.CanAccess(g)
}
