package inbound

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
)

func TestCleanupWorker_Once(t *testing.T) {
	t.Run("sets correlation id", func(t *testing.T) {
		// Arrange
		uc := &mockUC{}
		uc.On("Cleanup", mock.MatchedBy(func(ctx context.Context) bool {
			return instrument.GetCorrelationID(ctx) != ""
		})).Return(&usecase.CleanupOutput{PurgedTokens: 3}, nil).Once()
		w := &cleanupWorker{uc: uc, uuid: uid.NewUUID()}

		// Act
		w.once(context.Background())

		// Assert
		uc.AssertExpectations(t)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		uc := &mockUC{}
		uc.On("Cleanup", mock.Anything).Return(nil, errors.New("boom")).Once()
		w := &cleanupWorker{uc: uc, uuid: uid.NewUUID()}

		assert.NotPanics(t, func() { w.once(context.Background()) })
		uc.AssertExpectations(t)
	})
}

func TestRegisterCleanupWorker(t *testing.T) {
	t.Run("disabled schedules nothing", func(t *testing.T) {
		cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  attendance:\n    cleanup:\n      enabled: false\n"))
		require.NoError(t, err)
		routine := goroutine.NewManager(1)
		uc := &mockUC{}

		RegisterCleanupWorker(context.Background(), cfg, routine, uid.NewUUID(), uc)

		require.NoError(t, routine.Wait())
		uc.AssertNotCalled(t, "Cleanup", mock.Anything)
	})

	t.Run("enabled stops with context", func(t *testing.T) {
		cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  attendance:\n    cleanup:\n      enabled: true\n      interval_minutes: 60\n"))
		require.NoError(t, err)
		routine := goroutine.NewManager(1)
		ctx, cancel := context.WithCancel(context.Background())

		RegisterCleanupWorker(ctx, cfg, routine, uid.NewUUID(), &mockUC{})
		cancel()

		assert.NoError(t, routine.Wait())
	})
}
