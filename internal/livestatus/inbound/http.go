package inbound

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/config"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, cfg config.Config, uc ucStream) {
	origins := cfg.GetArray("modules.livestatus.allowed_origins")

	end := &HTTPEndpoint{
		uc: uc,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
		pingInterval: config.DurationOr(cfg.GetSecond, cfg, "modules.livestatus.ping_interval_seconds", 25*time.Second),
	}

	r.GETRaw("/api/v1/livestatus/ws", http.HandlerFunc(end.Stream))
}
