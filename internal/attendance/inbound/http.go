package inbound

import (
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/attendance/sessions/start", end.SessionStart)
	r.POST("/api/v1/attendance/sessions/stop", end.SessionStop)
	r.GET("/api/v1/attendance/sessions/status", end.SessionStatus)

	r.GET("/api/v1/attendance/sessions/secret", end.SessionSecret)
	r.GET("/api/v1/attendance/sessions/token", end.SessionToken)
	r.GETRaw("/api/v1/attendance/sessions/qr.png", end.SessionQR())

	r.POST("/api/v1/attendance/scans", end.ScanSubmit)

	r.GET("/api/v1/attendance/archives", end.ArchiveList)
}
