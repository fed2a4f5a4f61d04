package usecase

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/authz"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/secretbox"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testNowMillis = int64(1_700_000_025_000)
	testDate      = "2023-11-14"
)

const testConfig = `
modules:
  attendance:
    rotation:
      default_interval_seconds: 50
      min_interval_seconds: 10
      max_interval_seconds: 300
    validation:
      stale_windows: 10
    cache:
      secret_ttl_seconds: 300
    cleanup:
      retention_days: 30
      batch_size: 2
`

type fixture struct {
	uc      *Usecase
	db      *fakeDB
	cache   *fakeCache
	mq      *mockMessaging
	archive *mockArchive
	clock   *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	az, err := authz.NewCasbin(nil)
	require.NoError(t, err)

	box, err := secretbox.New(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	mq := &mockMessaging{}
	mq.On("PublishSessionStarted", mock.Anything, mock.Anything).Return(nil).Maybe()
	mq.On("PublishSessionStopped", mock.Anything, mock.Anything).Return(nil).Maybe()
	mq.On("PublishScanRecorded", mock.Anything, mock.Anything).Return(nil).Maybe()

	f := &fixture{
		db:      newFakeDB(),
		cache:   newFakeCache(),
		mq:      mq,
		archive: &mockArchive{},
		clock:   clock.NewManualMillis(testNowMillis),
	}

	f.uc = New(Dependency{
		RepoDB:        f.db,
		RepoCache:     f.cache,
		RepoMessaging: f.mq,
		RepoArchive:   f.archive,
		Validator:     v,
		Config:        cfg,
		Authorizer:    az,
		SecretBox:     box,
		UID:           &seqID{},
		UUID:          &seqUUID{},
		Clock:         f.clock,
		Location:      time.UTC,
		Instrument:    instrument.NewNoop(),
	})

	return f
}

func asAdmin(userID, group int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID, Role: "admin", GroupID: group})
}

func asMember(userID, group int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID, Role: "member", GroupID: group})
}

func asSuperAdmin(userID int64) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID, Role: "super_admin"})
}

func requireCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	var ge *goerror.Error
	require.ErrorAs(t, err, &ge)
	require.Equal(t, code, ge.Code(), ge.Msg())
}

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return 1000 + s.n.Add(1) }

type seqUUID struct{ n atomic.Int64 }

func (s *seqUUID) Generate() string { return "evt-" + strconv.FormatInt(s.n.Add(1), 10) }

type mockMessaging struct{ mock.Mock }

func (m *mockMessaging) PublishSessionStarted(ctx context.Context, msg SessionStartedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessaging) PublishSessionStopped(ctx context.Context, msg SessionStoppedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessaging) PublishScanRecorded(ctx context.Context, msg ScanRecordedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

type mockArchive struct{ mock.Mock }

func (m *mockArchive) StoreTokens(ctx context.Context, date string, tokens []entity.QRToken) (string, error) {
	args := m.Called(ctx, date, tokens)
	return args.String(0), args.Error(1)
}

func (m *mockArchive) ListTokens(ctx context.Context, date string) ([]ArchiveObject, error) {
	args := m.Called(ctx, date)
	objs, _ := args.Get(0).([]ArchiveObject)
	return objs, args.Error(1)
}

type fakeCache struct {
	mu    sync.Mutex
	items map[entity.MeetingID][]byte
	err   error
}

func newFakeCache() *fakeCache { return &fakeCache{items: map[entity.MeetingID][]byte{}} }

func (c *fakeCache) GetSecret(_ context.Context, id entity.MeetingID) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.items[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) SetSecret(_ context.Context, id entity.MeetingID, sealed []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = sealed
	return nil
}

func (c *fakeCache) DeleteSecret(_ context.Context, id entity.MeetingID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

// fakeDB mirrors the unique constraints of the attendance schema.
type fakeDB struct {
	mu       sync.Mutex
	meetings map[entity.MeetingID]*entity.Meeting
	secrets  map[entity.MeetingID]SealedSecret
	tokens   map[entity.TokenID]*entity.QRToken
	records  map[string]entity.Attendance
	err      error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		meetings: map[entity.MeetingID]*entity.Meeting{},
		secrets:  map[entity.MeetingID]SealedSecret{},
		tokens:   map[entity.TokenID]*entity.QRToken{},
		records:  map[string]entity.Attendance{},
	}
}

func (d *fakeDB) GetActiveMeeting(_ context.Context, scope entity.Scope) (*entity.Meeting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, m := range d.meetings {
		if m.IsActive && m.Scope() == scope {
			cp := *m
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (d *fakeDB) GetSessionSecret(_ context.Context, id entity.MeetingID) (*SealedSecret, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.secrets[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &s, nil
}

func (d *fakeDB) StartMeeting(_ context.Context, m entity.Meeting, secret SealedSecret) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, old := range d.meetings {
		if old.IsActive && old.Scope() == m.Scope() {
			return goerror.ErrConflict
		}
	}
	d.meetings[m.ID] = &m
	d.secrets[m.ID] = secret
	return nil
}

func (d *fakeDB) StopMeeting(_ context.Context, id entity.MeetingID, by entity.UserID, at time.Time) (*entity.Meeting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.meetings[id]
	if !ok || !m.IsActive {
		return nil, goerror.ErrNotFound
	}
	m.IsActive = false
	m.DeactivatedBy = by
	m.DeactivatedAt = &at
	delete(d.secrets, id)
	cp := *m
	return &cp, nil
}

func (d *fakeDB) EnsureQRToken(_ context.Context, in entity.QRToken) (*entity.QRToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tokens {
		if t.MeetingID == in.MeetingID && t.WindowStart == in.WindowStart {
			cp := *t
			return &cp, nil
		}
	}
	m := d.meetings[in.MeetingID]
	m.TokenSequence++
	in.Sequence = m.TokenSequence
	d.tokens[in.ID] = &in
	cp := in
	return &cp, nil
}

func (d *fakeDB) MarkQRTokenConsumed(_ context.Context, id entity.TokenID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tokens[id]; ok {
		t.IsConsumed = true
	}
	return nil
}

func (d *fakeDB) RecordAttendance(_ context.Context, in entity.Attendance) (*entity.Attendance, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, false, d.err
	}
	key := in.MeetingDate + "/" + strconv.FormatInt(int64(in.UserID), 10)
	if stored, ok := d.records[key]; ok {
		return &stored, false, nil
	}
	d.records[key] = in
	return &in, true, nil
}

func (d *fakeDB) ListExpiredQRTokens(_ context.Context, before int64, limit int) ([]entity.QRToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []entity.QRToken
	for _, t := range d.tokens {
		if t.ExpiresAt < before {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *fakeDB) DeleteQRTokens(_ context.Context, ids []entity.TokenID) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := d.tokens[id]; ok {
			delete(d.tokens, id)
			n++
		}
	}
	return n, nil
}

func (d *fakeDB) DeleteOrphanSecrets(_ context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for id := range d.secrets {
		if m, ok := d.meetings[id]; !ok || !m.IsActive {
			delete(d.secrets, id)
			n++
		}
	}
	return n, nil
}

func (d *fakeDB) recordCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}
