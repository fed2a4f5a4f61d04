package inbound

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Frankpesta/cds-attendance-sub001/internal/livestatus/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
)

const writeWait = 10 * time.Second

type HTTPEndpoint struct {
	uc           ucStream
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// Stream pushes session and scan events of one scope over a websocket.
// @Summary Live session status
// @Description Upgrades to a websocket and sends one JSON text frame per session started, session stopped or scan recorded event. Browsers may pass the bearer token as access_token.
// @Tags Livestatus
// @Security BearerAuth
// @Param date query string false "Meeting date (YYYY-MM-DD), today when empty"
// @Param group_id query string false "Group id, 0 for all groups"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/livestatus/ws [get]
func (h *HTTPEndpoint) Stream(w http.ResponseWriter, r *http.Request) {
	req := &router.Request{Request: r}

	group, err := req.GetQueryInt64("group_id")
	if err != nil {
		router.WriteError(r.Context(), w, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream, err := h.uc.Subscribe(ctx, usecase.SubscribeInput{
		MeetingDate: req.GetQuery("date"),
		GroupID:     group,
	})
	if err != nil {
		router.WriteError(ctx, w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "failed to upgrade livestatus connection", "error", err)
		return
	}
	defer conn.Close()

	go h.discardReads(conn, cancel)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case evt, ok := <-stream:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				slog.WarnContext(ctx, "failed to send livestatus event", "event_id", evt.ID, "error", err)
				return
			}
		}
	}
}

// discardReads drains client frames so control frames are processed, and
// cancels the stream once the peer goes away.
func (h *HTTPEndpoint) discardReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
