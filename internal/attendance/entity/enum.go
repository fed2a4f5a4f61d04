package entity

import "strings"

type Role int16

const (
	// RoleUnknown is a missing or unrecognized role.
	RoleUnknown Role = 0

	// RoleMember may scan and read session status.
	RoleMember Role = 1

	// RoleAdmin may start and stop sessions for its group.
	RoleAdmin Role = 2

	// RoleSuperAdmin may act on every group.
	RoleSuperAdmin Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super_admin"
	default:
		return "unknown"
	}
}

// ParseRole accepts the names returned by String, case-insensitively.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member":
		return RoleMember
	case "admin":
		return RoleAdmin
	case "super_admin", "superadmin":
		return RoleSuperAdmin
	default:
		return RoleUnknown
	}
}

// IsAdmin is true for admins and super admins.
func (r Role) IsAdmin() bool { return r == RoleAdmin || r == RoleSuperAdmin }

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// RejectReason explains why a scan was not accepted.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectSessionNotActive
	RejectTokenMismatch
	RejectExpired
)

func (r RejectReason) String() string {
	switch r {
	case RejectSessionNotActive:
		return "session_not_active"
	case RejectTokenMismatch:
		return "token_mismatch"
	case RejectExpired:
		return "expired"
	default:
		return "none"
	}
}

// RecordOutcome is the result of persisting an accepted scan.
type RecordOutcome int

const (
	RecordCreated RecordOutcome = iota + 1
	RecordAlreadyRecorded
)

func (o RecordOutcome) String() string {
	switch o {
	case RecordCreated:
		return "created"
	case RecordAlreadyRecorded:
		return "already_recorded"
	default:
		return "unknown"
	}
}
