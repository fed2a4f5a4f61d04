package usecase

import (
	"testing"
	"time"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedTokens(t *testing.T, f *fixture, windows int) {
	t.Helper()
	for range windows {
		_, err := f.uc.SessionToken(asAdmin(1, 0), SessionTokenInput{})
		require.NoError(t, err)
		f.clock.Advance(50 * time.Second)
	}
}

func TestUsecase_Cleanup(t *testing.T) {
	t.Run("archives then purges in batches", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		s := startSession(t, f, 0)
		seedTokens(t, f, 3)
		_, err := f.uc.SessionStop(asAdmin(1, 0), SessionStopInput{})
		require.NoError(t, err)
		f.db.secrets[s.Meeting.ID] = SealedSecret{MeetingID: s.Meeting.ID}
		f.clock.Advance(31 * 24 * time.Hour)
		f.archive.On("StoreTokens", mock.Anything, testDate, mock.Anything).Return("attendance/"+testDate+"/a.json", nil)

		// Act
		out, err := f.uc.Cleanup(t.Context())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(3), out.PurgedTokens)
		assert.Equal(t, int64(1), out.OrphanSecrets)
		assert.Len(t, out.Archived, 2)
		assert.Empty(t, f.db.tokens)
		f.archive.AssertNumberOfCalls(t, "StoreTokens", 2)
	})

	t.Run("keeps recent tokens", func(t *testing.T) {
		f := newFixture(t)
		startSession(t, f, 0)
		seedTokens(t, f, 2)

		out, err := f.uc.Cleanup(t.Context())

		require.NoError(t, err)
		assert.Zero(t, out.PurgedTokens)
		assert.Len(t, f.db.tokens, 2)
		f.archive.AssertNotCalled(t, "StoreTokens", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("archive failure keeps the batch", func(t *testing.T) {
		f := newFixture(t)
		startSession(t, f, 0)
		seedTokens(t, f, 1)
		f.clock.Advance(31 * 24 * time.Hour)
		f.archive.On("StoreTokens", mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError)

		_, err := f.uc.Cleanup(t.Context())

		requireCode(t, err, goerror.CodeInternal)
		assert.Len(t, f.db.tokens, 1)
	})
}

func TestUsecase_ArchiveList(t *testing.T) {
	t.Run("admin lists", func(t *testing.T) {
		f := newFixture(t)
		want := []ArchiveObject{{Key: "attendance/" + testDate + "/a.json", Size: 10, URL: "memory://x"}}
		f.archive.On("ListTokens", mock.Anything, testDate).Return(want, nil)

		got, err := f.uc.ArchiveList(asAdmin(1, 0), ArchiveListInput{MeetingDate: testDate})

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("member forbidden", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.ArchiveList(asMember(1, 0), ArchiveListInput{MeetingDate: testDate})

		requireCode(t, err, goerror.CodeForbidden)
	})

	t.Run("date required", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.ArchiveList(asAdmin(1, 0), ArchiveListInput{})

		requireCode(t, err, goerror.CodeInvalidInput)
	})
}

