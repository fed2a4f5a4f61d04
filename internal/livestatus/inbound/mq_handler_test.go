package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goroutine"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/messaging"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
	"github.com/Frankpesta/cds-attendance-sub001/internal/shared/event"
)

type mockUC struct{ mock.Mock }

func (m *mockUC) ConsumeEvent(ctx context.Context, in usecase.ConsumeEventInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockUC) Subscribe(ctx context.Context, in usecase.SubscribeInput) (<-chan entity.Event, error) {
	args := m.Called(ctx, in)
	ch, _ := args.Get(0).(<-chan entity.Event)
	return ch, args.Error(1)
}

type fakeMessage struct {
	body    []byte
	headers map[string]string
}

func (m fakeMessage) Body() []byte               { return m.body }
func (m fakeMessage) Key() []byte                { return nil }
func (m fakeMessage) Header(key string) string   { return m.headers[key] }
func (m fakeMessage) Headers() map[string]string { return m.headers }
func (m fakeMessage) ID() string                 { return "1" }
func (m fakeMessage) Source() string             { return "test" }
func (m fakeMessage) Timestamp() time.Time       { return time.Time{} }
func (m fakeMessage) Ack(context.Context) error  { return nil }
func (m fakeMessage) Nack(context.Context) error { return nil }

func newHandler(uc ucConsumer) *MQHandler {
	return &MQHandler{uc: uc, uuid: uid.NewUUID(), ins: instrument.NewNoop()}
}

func TestMQHandler_SessionStopped(t *testing.T) {
	t.Run("maps payload and keeps correlation id", func(t *testing.T) {
		// Arrange
		uc := &mockUC{}
		want := entity.Event{
			ID:          "evt-9",
			Type:        entity.EventSessionStopped,
			MeetingID:   11,
			MeetingDate: "2023-11-14",
			GroupID:     3,
			UserID:      7,
			At:          1_700_000_100_000,
		}
		uc.On("ConsumeEvent", mock.MatchedBy(func(ctx context.Context) bool {
			return instrument.GetCorrelationID(ctx) == "cid-1"
		}), usecase.ConsumeEventInput{Event: want}).Return(nil).Once()

		msg := fakeMessage{
			body:    []byte(`{"event_id":"evt-9","meeting_id":"11","meeting_date":"2023-11-14","group_id":"3","deactivated_by":"7","deactivated_at":1700000100000}`),
			headers: map[string]string{event.HeaderCorrelationID: "cid-1"},
		}

		// Act
		err := newHandler(uc).SessionStopped(context.Background(), msg)

		// Assert
		require.NoError(t, err)
		uc.AssertExpectations(t)
	})

	t.Run("bad body is acked", func(t *testing.T) {
		uc := &mockUC{}

		err := newHandler(uc).SessionStopped(context.Background(), fakeMessage{body: []byte("{")})

		assert.NoError(t, err)
		uc.AssertNotCalled(t, "ConsumeEvent", mock.Anything, mock.Anything)
	})

	t.Run("usecase error nacks", func(t *testing.T) {
		uc := &mockUC{}
		uc.On("ConsumeEvent", mock.Anything, mock.Anything).Return(errors.New("boom"))

		err := newHandler(uc).SessionStopped(context.Background(), fakeMessage{body: []byte(`{"event_id":"x","meeting_date":"2023-11-14"}`)})

		assert.Error(t, err)
	})
}

func TestMQHandler_ScanRecorded(t *testing.T) {
	uc := &mockUC{}
	uc.On("ConsumeEvent", mock.Anything, mock.MatchedBy(func(in usecase.ConsumeEventInput) bool {
		return in.Event.Type == entity.EventScanRecorded && in.Event.UserID == 5 && in.Event.At == 1_700_000_025_000
	})).Return(nil).Once()

	err := newHandler(uc).ScanRecorded(context.Background(), fakeMessage{
		body: []byte(`{"event_id":"s1","meeting_id":"11","meeting_date":"2023-11-14","group_id":"0","user_id":"5","scanned_at":1700000025000}`),
	})

	require.NoError(t, err)
	uc.AssertExpectations(t)
}

func TestRegisterMQConsumer(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  livestatus:\n    consumer_names: "+event.SessionStartedDestination+"\n"))
	require.NoError(t, err)
	broker := messaging.NewLocal()
	routine := goroutine.NewManager(4)
	uc := &mockUC{}
	got := make(chan struct{}, 1)
	uc.On("ConsumeEvent", mock.Anything, mock.MatchedBy(func(in usecase.ConsumeEventInput) bool {
		return in.Event.Type == entity.EventSessionStarted && in.Event.RotationIntervalSeconds == 50
	})).Return(nil).Once().Run(func(mock.Arguments) { got <- struct{}{} })
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	RegisterMQConsumer(ctx, cfg, routine, broker, uid.NewUUID(), uc, instrument.NewNoop(), "node-1")
	require.Eventually(t, func() bool { return broker.Subscribers(event.SessionStartedDestination) == 1 }, time.Second, 5*time.Millisecond)
	_, err = broker.Publish(ctx, event.SessionStartedDestination, messaging.OutgoingMessage{
		Body: []byte(`{"event_id":"e1","meeting_id":"11","meeting_date":"2023-11-14","group_id":"0","activated_by":"7","rotation_interval_seconds":50,"activated_at":1}`),
	})
	require.NoError(t, err)

	// Assert
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("event not consumed")
	}
	assert.Zero(t, broker.Subscribers(event.SessionStoppedDestination))
	cancel()
	require.NoError(t, routine.Wait())
	uc.AssertExpectations(t)
}
