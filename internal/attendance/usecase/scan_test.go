package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/qrtoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T, f *fixture, group int64) *SessionStartOutput {
	t.Helper()
	out, err := f.uc.SessionStart(asAdmin(1, 0), SessionStartInput{GroupID: group})
	require.NoError(t, err)
	return out
}

func requireReason(t *testing.T, err error, code goerror.Code, reason string) {
	t.Helper()
	requireCode(t, err, code)
	var ge *goerror.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, reason, ge.Fields()["reason"])
}

func TestUsecase_ScanSubmit(t *testing.T) {
	t.Run("created then already recorded", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		s := startSession(t, f, 0)
		token := qrtoken.Generate(s.Secret, testNowMillis, 50)

		// Act
		first, err := f.uc.ScanSubmit(asMember(10, 3), ScanSubmitInput{Token: token})
		require.NoError(t, err)
		second, err := f.uc.ScanSubmit(asMember(10, 3), ScanSubmitInput{Token: token, MeetingDate: testDate})
		require.NoError(t, err)

		// Assert
		assert.Equal(t, entity.RecordCreated, first.Outcome)
		assert.Equal(t, entity.RecordAlreadyRecorded, second.Outcome)
		assert.Equal(t, first.Attendance.ID, second.Attendance.ID)
		assert.Equal(t, entity.AttendanceStatusPresent, first.Attendance.Status)
		assert.Equal(t, entity.GroupID(3), first.Attendance.GroupID)
		assert.Equal(t, first.Token.ID, first.Attendance.QRTokenID)
		assert.Equal(t, 1, f.db.recordCount())
		assert.True(t, f.db.tokens[first.Token.ID].IsConsumed)
		f.mq.AssertNumberOfCalls(t, "PublishScanRecorded", 1)
	})

	t.Run("many users share a window", func(t *testing.T) {
		f := newFixture(t)
		s := startSession(t, f, 0)
		token := qrtoken.Generate(s.Secret, testNowMillis, 50)

		for user := int64(10); user < 15; user++ {
			out, err := f.uc.ScanSubmit(asMember(user, 0), ScanSubmitInput{Token: token})
			require.NoError(t, err)
			assert.Equal(t, entity.RecordCreated, out.Outcome)
		}
		assert.Equal(t, 5, f.db.recordCount())
		assert.Len(t, f.db.tokens, 1)
	})

	tests := []struct {
		name    string
		issueAt int64
		advance time.Duration
		code    goerror.Code
		reason  string
	}{
		{name: "within grace", advance: 10 * time.Second},
		{name: "previous window", advance: 50 * time.Second},
		{name: "two windows later", advance: 120 * time.Second, code: goerror.CodeExpired, reason: "expired"},
		{name: "future window", issueAt: testNowMillis + 50_000, code: goerror.CodeInvalidInput, reason: "token_mismatch"},
		{name: "far in the past", advance: time.Hour, code: goerror.CodeInvalidInput, reason: "token_mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t)
			s := startSession(t, f, 0)
			issueAt := tt.issueAt
			if issueAt == 0 {
				issueAt = testNowMillis
			}
			token := qrtoken.Generate(s.Secret, issueAt, 50)
			f.clock.Advance(tt.advance)

			// Act
			out, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: token})

			// Assert
			if tt.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, entity.RecordCreated, out.Outcome)
				assert.Equal(t, int64(1_700_000_000), out.Token.WindowStart)
				return
			}
			requireReason(t, err, tt.code, tt.reason)
			assert.Zero(t, f.db.recordCount())
		})
	}

	t.Run("late previous window scan numbers its audit row after the current one", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		s := startSession(t, f, 0)
		previous := qrtoken.Generate(s.Secret, testNowMillis, 50)
		f.clock.Advance(50 * time.Second)
		current := qrtoken.Generate(s.Secret, testNowMillis+50_000, 50)

		// Act
		onTime, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: current})
		require.NoError(t, err)
		late, err := f.uc.ScanSubmit(asMember(11, 0), ScanSubmitInput{Token: previous})
		require.NoError(t, err)

		// Assert
		assert.Equal(t, int64(1_700_000_050), onTime.Token.WindowStart)
		assert.Equal(t, int64(1_700_000_000), late.Token.WindowStart)
		assert.Equal(t, int64(1), onTime.Token.Sequence)
		assert.Equal(t, int64(2), late.Token.Sequence)
	})

	t.Run("token of another session", func(t *testing.T) {
		f := newFixture(t)
		startSession(t, f, 3)
		other := startSession(t, f, 4)

		_, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{
			Token:   qrtoken.Generate(other.Secret, testNowMillis, 50),
			GroupID: 3,
		})

		requireReason(t, err, goerror.CodeInvalidInput, "token_mismatch")
	})

	t.Run("no active session", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: qrtoken.ForWindow(qrtoken.Secret("x"), 0)})

		requireReason(t, err, goerror.CodeNotActive, "session_not_active")
	})

	t.Run("stopped session rejects a still valid token", func(t *testing.T) {
		f := newFixture(t)
		s := startSession(t, f, 0)
		token := qrtoken.Generate(s.Secret, testNowMillis, 50)
		_, err := f.uc.SessionStop(asAdmin(1, 0), SessionStopInput{})
		require.NoError(t, err)

		_, err = f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: token})

		requireCode(t, err, goerror.CodeNotActive)
	})

	t.Run("malformed token", func(t *testing.T) {
		f := newFixture(t)
		startSession(t, f, 0)

		_, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: "ABC"})

		requireCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("member of another group", func(t *testing.T) {
		f := newFixture(t)
		s := startSession(t, f, 3)

		_, err := f.uc.ScanSubmit(asMember(10, 4), ScanSubmitInput{
			Token:   qrtoken.Generate(s.Secret, testNowMillis, 50),
			GroupID: 3,
		})

		requireCode(t, err, goerror.CodeForbidden)
	})

	t.Run("storage unavailable is retryable", func(t *testing.T) {
		f := newFixture(t)
		s := startSession(t, f, 0)
		f.db.err = goerror.ErrUnavailable

		_, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: qrtoken.Generate(s.Secret, testNowMillis, 50)})

		requireCode(t, err, goerror.CodeUnavailable)
	})

	t.Run("publish failure does not fail the scan", func(t *testing.T) {
		f := newFixture(t)
		s := startSession(t, f, 0)
		f.mq.ExpectedCalls = nil
		f.mq.On("PublishScanRecorded", mock.Anything, mock.Anything).Return(assert.AnError)

		out, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: qrtoken.Generate(s.Secret, testNowMillis, 50)})

		require.NoError(t, err)
		assert.Equal(t, entity.RecordCreated, out.Outcome)
	})
}

func TestUsecase_ScanSubmit_Concurrent(t *testing.T) {
	// Arrange
	f := newFixture(t)
	s := startSession(t, f, 0)
	token := qrtoken.Generate(s.Secret, testNowMillis, 50)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[entity.RecordOutcome]int{}
	)

	// Act
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.uc.ScanSubmit(asMember(10, 0), ScanSubmitInput{Token: token})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			outcomes[out.Outcome]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Assert
	assert.Equal(t, map[entity.RecordOutcome]int{entity.RecordCreated: 1, entity.RecordAlreadyRecorded: 1}, outcomes)
	assert.Equal(t, 1, f.db.recordCount())
}

func TestUsecase_RecordScan(t *testing.T) {
	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.uc.RecordScan(asMember(1, 0), RecordScanInput{})

		requireCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("idempotent per user and date", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		in := RecordScanInput{UserID: 4, MeetingID: 99, MeetingDate: testDate, ScannedAt: f.clock.Now()}

		// Act
		first, firstAtt, err := f.uc.RecordScan(asMember(4, 0), in)
		require.NoError(t, err)
		in.ScannedAt = in.ScannedAt.Add(time.Second)
		second, secondAtt, err := f.uc.RecordScan(asMember(4, 0), in)
		require.NoError(t, err)

		// Assert
		assert.Equal(t, entity.RecordCreated, first)
		assert.Equal(t, entity.RecordAlreadyRecorded, second)
		assert.Equal(t, 1, f.db.recordCount())
		require.NotNil(t, secondAtt)
		assert.Equal(t, firstAtt.ID, secondAtt.ID)
		assert.True(t, firstAtt.ScannedAt.Equal(secondAtt.ScannedAt))
	})
}
