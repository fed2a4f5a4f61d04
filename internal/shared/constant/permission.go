package constant

// Authorization objects.
const (
	PermAttendanceSession = "attendance.session"
	PermAttendanceSecret  = "attendance.secret"
	PermAttendanceScan    = "attendance.scan"
	PermAttendanceArchive = "attendance.archive"
	PermLivestatus        = "livestatus"
)

// Authorization actions.
const (
	PermActRead  = "read"
	PermActWrite = "write"
)

// Token roles. RoleSuperAdmin bypasses group scoping.
const (
	RoleMember     = "member"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)
