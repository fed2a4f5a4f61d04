package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/authz"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/secretbox"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type SessionStartedEvent struct {
	EventID                 string
	Meeting                 entity.Meeting
	RotationIntervalSeconds int64
}

type SessionStoppedEvent struct {
	EventID string
	Meeting entity.Meeting
}

type ScanRecordedEvent struct {
	EventID    string
	Attendance entity.Attendance
}

type repoMessaging interface {
	PublishSessionStarted(ctx context.Context, msg SessionStartedEvent) error
	PublishSessionStopped(ctx context.Context, msg SessionStoppedEvent) error
	PublishScanRecorded(ctx context.Context, msg ScanRecordedEvent) error
}

// SealedSecret is a session secret as stored: ciphertext only.
type SealedSecret struct {
	MeetingID               entity.MeetingID
	Sealed                  []byte
	RotationIntervalSeconds int64
	CreatedAt               time.Time
}

type repoDB interface {
	GetActiveMeeting(ctx context.Context, scope entity.Scope) (*entity.Meeting, error)
	GetSessionSecret(ctx context.Context, meetingID entity.MeetingID) (*SealedSecret, error)

	// StartMeeting inserts the meeting and its secret in one transaction.
	StartMeeting(ctx context.Context, m entity.Meeting, secret SealedSecret) error
	// StopMeeting deactivates the meeting and deletes its secret in one transaction.
	StopMeeting(ctx context.Context, id entity.MeetingID, by entity.UserID, at time.Time) (*entity.Meeting, error)

	// EnsureQRToken returns the audit row for (meeting, window), creating it
	// with the next sequence when missing.
	EnsureQRToken(ctx context.Context, in entity.QRToken) (*entity.QRToken, error)
	MarkQRTokenConsumed(ctx context.Context, id entity.TokenID) error
	// RecordAttendance reports false, with the stored record, when (user,
	// date) already has one.
	RecordAttendance(ctx context.Context, in entity.Attendance) (*entity.Attendance, bool, error)

	ListExpiredQRTokens(ctx context.Context, before int64, limit int) ([]entity.QRToken, error)
	DeleteQRTokens(ctx context.Context, ids []entity.TokenID) (int64, error)
	DeleteOrphanSecrets(ctx context.Context) (int64, error)
}

type repoCache interface {
	GetSecret(ctx context.Context, meetingID entity.MeetingID) ([]byte, error)
	SetSecret(ctx context.Context, meetingID entity.MeetingID, sealed []byte, ttl time.Duration) error
	DeleteSecret(ctx context.Context, meetingID entity.MeetingID) error
}

// ArchiveObject is one archived log file.
type ArchiveObject struct {
	Key       string
	Size      int64
	URL       string
	CreatedAt time.Time
}

type repoArchive interface {
	StoreTokens(ctx context.Context, date string, tokens []entity.QRToken) (string, error)
	ListTokens(ctx context.Context, date string) ([]ArchiveObject, error)
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	repoArchive   repoArchive
	validator     validator.Validator
	cfg           config.Config
	authz         authz.Authorizer
	box           secretbox.Box
	uid           uid.NumberID
	uuid          uid.StringID
	clock         clock.Clocker
	location      *time.Location
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	RepoArchive   repoArchive
	Validator     validator.Validator
	Config        config.Config
	Authorizer    authz.Authorizer
	SecretBox     secretbox.Box
	UID           uid.NumberID
	UUID          uid.StringID
	Clock         clock.Clocker
	// Location fixes the calendar used for meeting dates; time.Local when nil.
	Location   *time.Location
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	loc := dep.Location
	if loc == nil {
		loc = time.Local
	}
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMessaging: dep.RepoMessaging,
		repoArchive:   dep.RepoArchive,
		validator:     dep.Validator,
		cfg:           dep.Config,
		authz:         dep.Authorizer,
		box:           dep.SecretBox,
		uid:           dep.UID,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		location:      loc,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("attendance.usecase").Start(ctx, name)
}

const (
	keyDefaultInterval = "modules.attendance.rotation.default_interval_seconds"
	keyMinInterval     = "modules.attendance.rotation.min_interval_seconds"
	keyMaxInterval     = "modules.attendance.rotation.max_interval_seconds"
	keyStaleWindows    = "modules.attendance.validation.stale_windows"
	keySecretCacheTTL  = "modules.attendance.cache.secret_ttl_seconds"
	keyRetentionDays   = "modules.attendance.cleanup.retention_days"
	keyCleanupBatch    = "modules.attendance.cleanup.batch_size"
)

func (s *Usecase) defaultInterval() int64 {
	return config.IntOr(s.cfg, keyDefaultInterval, qrtoken.DefaultIntervalSeconds)
}

func (s *Usecase) staleWindows() int {
	if !s.cfg.IsSet(keyStaleWindows) {
		return qrtoken.DefaultStaleWindows
	}
	return max(s.cfg.GetInt(keyStaleWindows), 0)
}

func (s *Usecase) secretCacheTTL() time.Duration {
	return config.DurationOr(s.cfg.GetSecond, s.cfg, keySecretCacheTTL, 5*time.Minute)
}

// today is the current calendar date in the meeting time zone.
func (s *Usecase) today() string {
	return s.clock.Now().In(s.location).Format(validator.DateLayout)
}

func (s *Usecase) scope(date string, group int64) entity.Scope {
	if date == "" {
		date = s.today()
	}
	return entity.Scope{Date: date, GroupID: entity.GroupID(group)}
}

type groupAccess int

const (
	// groupManage requires the caller to own the group.
	groupManage groupAccess = iota
	// groupJoin also admits sessions open to every group.
	groupJoin
)

// authenticatedAndAuthorized resolves the caller and checks obj/act for its
// role. A caller bound to one group may only touch that group's scope.
func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string, group entity.GroupID, access groupAccess) (entity.Identity, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return entity.Identity{}, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	id := entity.Identity{
		UserID:  entity.UserID(clm.UserID),
		Role:    entity.ParseRole(clm.Role),
		GroupID: entity.GroupID(clm.GroupID),
	}
	if id.Role == entity.RoleUnknown {
		slog.WarnContext(ctx, "caller has unknown role", "user_id", clm.UserID, "role", clm.Role)
		return entity.Identity{}, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	ok, err := s.authz.Authorize(ctx, id.Role.String(), obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.UserID, "error", err)
		return entity.Identity{}, goerror.NewServer(err)
	}
	if !ok {
		return entity.Identity{}, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	allowed := id.CanAccess(group)
	if access == groupJoin {
		allowed = id.CanJoin(group)
	}
	if !allowed {
		slog.WarnContext(ctx, "caller group does not match scope", "user_id", clm.UserID, "caller_group", clm.GroupID, "group_id", group)
		return entity.Identity{}, goerror.NewBusiness("Group not allowed", goerror.CodeForbidden)
	}

	return id, nil
}

var errNotActive = goerror.NewBusiness("Session is not active", goerror.CodeNotActive, "reason", entity.RejectSessionNotActive.String())

func (s *Usecase) activeMeeting(ctx context.Context, scope entity.Scope) (*entity.Meeting, error) {
	m, err := s.repoDB.GetActiveMeeting(ctx, scope)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errNotActive
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get active meeting", "date", scope.Date, "group_id", scope.GroupID, "error", err)
		return nil, goerror.NewServer(err)
	}
	return m, nil
}

// loadSecret reads the meeting secret cache-first. The database decides
// whether the secret still exists; a cache miss or cache failure falls
// through to it and refills the cache.
func (s *Usecase) loadSecret(ctx context.Context, m *entity.Meeting) (qrtoken.Secret, error) {
	id := int64(m.ID)

	sealed, err := s.repoCache.GetSecret(ctx, m.ID)
	if err == nil {
		plain, oerr := s.box.Open(sealed, secretbox.Scope{MeetingID: id, Purpose: secretbox.PurposeCache})
		if oerr == nil {
			return qrtoken.Secret(plain), nil
		}
		slog.WarnContext(ctx, "failed to open cached secret", "meeting_id", id, "error", oerr)
	} else if !errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "failed to cache get secret", "meeting_id", id, "error", err)
	}

	stored, err := s.repoDB.GetSessionSecret(ctx, m.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errNotActive
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session secret", "meeting_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	plain, err := s.box.Open(stored.Sealed, secretbox.Scope{MeetingID: id, Purpose: secretbox.PurposeStore})
	if err != nil {
		slog.ErrorContext(ctx, "failed to open stored secret", "meeting_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.cacheSecret(ctx, m.ID, plain)
	return qrtoken.Secret(plain), nil
}

func (s *Usecase) cacheSecret(ctx context.Context, id entity.MeetingID, plain []byte) {
	sealed, err := s.box.Seal(plain, secretbox.Scope{MeetingID: int64(id), Purpose: secretbox.PurposeCache})
	if err != nil {
		slog.WarnContext(ctx, "failed to seal secret for cache", "meeting_id", id, "error", err)
		return
	}
	if err := s.repoCache.SetSecret(ctx, id, sealed, s.secretCacheTTL()); err != nil {
		slog.WarnContext(ctx, "failed to cache set secret", "meeting_id", id, "error", err)
	}
}

func (s *Usecase) evictSecret(ctx context.Context, id entity.MeetingID) {
	if err := s.repoCache.DeleteSecret(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to cache delete secret", "meeting_id", id, "error", err)
	}
}

// ensureToken records the audit row of the window starting at ws.
func (s *Usecase) ensureToken(ctx context.Context, m *entity.Meeting, secret qrtoken.Secret, ws int64, by entity.UserID) (*entity.QRToken, error) {
	tok, err := s.repoDB.EnsureQRToken(ctx, entity.QRToken{
		ID:          entity.TokenID(s.uid.Generate()),
		MeetingID:   m.ID,
		MeetingDate: m.Date,
		Token:       qrtoken.ForWindow(secret, ws),
		GeneratedBy: by,
		WindowStart: ws,
		ExpiresAt:   qrtoken.WindowExpiry(ws, m.RotationIntervalSeconds),
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo ensure qr token", "meeting_id", m.ID, "window_start", ws, "error", err)
		return nil, goerror.NewServer(err)
	}
	return tok, nil
}
