package inbound

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/entity"
	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/clock"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/goerror"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/instrument"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/jwt"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/uid"
)

func newServer(t *testing.T, uc ucStream) (*httptest.Server, string) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  livestatus:\n    allowed_origins: \"*\"\n"))
	require.NoError(t, err)
	signer, err := jwt.NewHS512(jwt.Config{
		Secret: bytes.Repeat([]byte("s"), 64),
		Issuer: "test",
		TTL:    time.Hour,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)
	tok, err := signer.Generate(jwt.Subject{UserID: 7, Role: "admin"})
	require.NoError(t, err)

	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), JWT: signer, Instrument: instrument.NewNoop()})
	RegisterHTTPEndpoint(r, cfg, uc)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, tok
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/livestatus/ws" + query
}

func TestHTTPEndpoint_Stream(t *testing.T) {
	t.Run("forwards events", func(t *testing.T) {
		// Arrange
		events := make(chan entity.Event, 1)
		uc := &mockUC{}
		uc.On("Subscribe", mock.Anything, usecase.SubscribeInput{MeetingDate: "2023-11-14", GroupID: 3}).
			Return((<-chan entity.Event)(events), nil)
		srv, tok := newServer(t, uc)

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?date=2023-11-14&group_id=3&access_token="+tok), nil)
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

		// Act
		events <- entity.Event{ID: "e1", Type: entity.EventSessionStopped, MeetingDate: "2023-11-14", GroupID: 3}

		// Assert
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var got map[string]any
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "e1", got["event_id"])
		assert.Equal(t, "session_stopped", got["type"])
		assert.Equal(t, "3", got["group_id"])
	})

	t.Run("closed stream ends connection", func(t *testing.T) {
		events := make(chan entity.Event)
		close(events)
		uc := &mockUC{}
		uc.On("Subscribe", mock.Anything, mock.Anything).Return((<-chan entity.Event)(events), nil)
		srv, tok := newServer(t, uc)

		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), http.Header{"Authorization": {"Bearer " + tok}})
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		_, _, err = conn.ReadMessage()
		assert.Error(t, err)
	})

	t.Run("forbidden before upgrade", func(t *testing.T) {
		uc := &mockUC{}
		uc.On("Subscribe", mock.Anything, mock.Anything).Return(nil, goerror.NewBusiness("Group not allowed", goerror.CodeForbidden))
		srv, tok := newServer(t, uc)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?group_id=9"), http.Header{"Authorization": {"Bearer " + tok}})

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		srv, _ := newServer(t, &mockUC{})

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
