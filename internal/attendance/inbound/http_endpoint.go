package inbound

import (
	"net/http"
	"strconv"

	"github.com/Frankpesta/cds-attendance-sub001/internal/attendance/usecase"
	"github.com/Frankpesta/cds-attendance-sub001/internal/pkg/router"
	"github.com/samber/lo"
)

// HTTPEndpoint exposes session control, display and scan handlers.
type HTTPEndpoint struct {
	uc uc
}

// SessionStart activates QR scanning for a meeting date and group.
// @Summary Start session
// @Description Creates the meeting and its rotating secret. One session may be active per date and group.
// @Tags Attendance, Session
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SessionStartRequest true "Session scope"
// @Success 201 {object} router.successResponse{data=SessionStartResponse} "Session started"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Session is already active"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/attendance/sessions/start [post]
func (h *HTTPEndpoint) SessionStart(r *router.Request) (any, error) {
	var req SessionStartRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.SessionStart(r.Context(), usecase.SessionStartInput{
		MeetingDate:             req.MeetingDate,
		GroupID:                 req.GroupID,
		RotationIntervalSeconds: req.RotationIntervalSeconds,
	})
	if err != nil {
		return nil, err
	}

	return SessionStartResponse{
		MeetingID:               idString(resp.Meeting.ID),
		MeetingDate:             resp.Meeting.Date,
		GroupID:                 idString(resp.Meeting.GroupID),
		Secret:                  resp.Secret.Hex(),
		RotationIntervalSeconds: resp.Meeting.RotationIntervalSeconds,
		ActivatedAt:             resp.Meeting.ActivatedAt,
	}, nil
}

// SessionStop deactivates the session and retires its secret.
// @Summary Stop session
// @Tags Attendance, Session
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SessionStopRequest true "Session scope"
// @Success 200 {object} router.successResponse{data=SessionStopResponse} "Session stopped"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Session is not active"
// @Router /api/v1/attendance/sessions/stop [post]
func (h *HTTPEndpoint) SessionStop(r *router.Request) (any, error) {
	var req SessionStopRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	m, err := h.uc.SessionStop(r.Context(), usecase.SessionStopInput{
		MeetingDate: req.MeetingDate,
		GroupID:     req.GroupID,
	})
	if err != nil {
		return nil, err
	}

	return SessionStopResponse{
		MeetingID:     idString(m.ID),
		MeetingDate:   m.Date,
		GroupID:       idString(m.GroupID),
		DeactivatedAt: m.DeactivatedAt,
	}, nil
}

// SessionStatus reports whether a scope accepts scans.
// @Summary Session status
// @Tags Attendance, Session
// @Security BearerAuth
// @Produce json
// @Param date query string false "Meeting date (YYYY-MM-DD), today when empty"
// @Param group_id query string false "Group id, 0 for all groups"
// @Success 200 {object} router.successResponse{data=SessionStatusResponse} "Session status"
// @Router /api/v1/attendance/sessions/status [get]
func (h *HTTPEndpoint) SessionStatus(r *router.Request) (any, error) {
	group, err := r.GetQueryInt64("group_id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SessionStatus(r.Context(), usecase.SessionStatusInput{
		MeetingDate: r.GetQuery("date"),
		GroupID:     group,
	})
	if err != nil {
		return nil, err
	}

	out := SessionStatusResponse{
		IsActive:    resp.IsActive,
		MeetingDate: resp.Scope.Date,
		GroupID:     idString(resp.Scope.GroupID),
	}
	if resp.Meeting != nil {
		out.RotationIntervalSeconds = resp.Meeting.RotationIntervalSeconds
		out.ActivatedAt = &resp.Meeting.ActivatedAt
	}
	return out, nil
}

// SessionSecret hands the rotating secret to a display device.
// @Summary Session secret
// @Tags Attendance, Display
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=SessionSecretResponse} "Session secret"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "Session is not active"
// @Router /api/v1/attendance/sessions/secret [get]
func (h *HTTPEndpoint) SessionSecret(r *router.Request) (any, error) {
	group, err := r.GetQueryInt64("group_id")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.SessionSecret(r.Context(), usecase.SessionSecretInput{
		MeetingDate: r.GetQuery("date"),
		GroupID:     group,
	})
	if err != nil {
		return nil, err
	}

	return SessionSecretResponse{
		MeetingID:               idString(resp.Meeting.ID),
		MeetingDate:             resp.Meeting.Date,
		Secret:                  resp.Secret.Hex(),
		RotationIntervalSeconds: resp.Meeting.RotationIntervalSeconds,
		ServerTimeMS:            resp.ServerTimeMS,
	}, nil
}

// SessionToken returns the token of the current window.
// @Summary Current token
// @Tags Attendance, Display
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=SessionTokenResponse} "Current token"
// @Failure 409 {object} router.errorResponse "Session is not active"
// @Router /api/v1/attendance/sessions/token [get]
func (h *HTTPEndpoint) SessionToken(r *router.Request) (any, error) {
	group, err := r.GetQueryInt64("group_id")
	if err != nil {
		return nil, err
	}

	tok, err := h.uc.SessionToken(r.Context(), usecase.SessionTokenInput{
		MeetingDate: r.GetQuery("date"),
		GroupID:     group,
	})
	if err != nil {
		return nil, err
	}

	return SessionTokenResponse{
		Token:       tok.Token,
		WindowStart: tok.WindowStart,
		ExpiresAt:   tok.ExpiresAt,
		Sequence:    tok.Sequence,
	}, nil
}

// SessionQR writes the current token as a PNG image.
// @Summary Current token as QR code
// @Tags Attendance, Display
// @Security BearerAuth
// @Produce png
// @Param size query int false "Edge length in pixels"
// @Router /api/v1/attendance/sessions/qr.png [get]
func (h *HTTPEndpoint) SessionQR() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r := &router.Request{Request: req}

		group, err := r.GetQueryInt64("group_id")
		if err != nil {
			router.WriteError(req.Context(), w, err)
			return
		}
		size, err := r.GetQueryInt64("size")
		if err != nil {
			router.WriteError(req.Context(), w, err)
			return
		}

		resp, err := h.uc.SessionQR(req.Context(), usecase.SessionQRInput{
			MeetingDate: r.GetQuery("date"),
			GroupID:     group,
			Size:        int(size),
		})
		if err != nil {
			router.WriteError(req.Context(), w, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-QR-Expires-At", strconv.FormatInt(resp.Token.ExpiresAt, 10))
		w.Header().Set("X-QR-Sequence", strconv.FormatInt(resp.Token.Sequence, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(resp.PNG)
	})
}

// ScanSubmit validates a scanned token and records attendance.
// @Summary Submit scan
// @Tags Attendance, Scan
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ScanSubmitRequest true "Scanned token"
// @Success 201 {object} router.successResponse{data=ScanSubmitResponse} "Attendance recorded"
// @Success 200 {object} router.successResponse{data=ScanSubmitResponse} "Attendance already recorded"
// @Failure 409 {object} router.errorResponse "Session is not active"
// @Failure 410 {object} router.errorResponse "QR code has expired"
// @Failure 422 {object} router.errorResponse "QR code is not valid"
// @Failure 503 {object} router.errorResponse "Service temporarily unavailable"
// @Router /api/v1/attendance/scans [post]
func (h *HTTPEndpoint) ScanSubmit(r *router.Request) (any, error) {
	var req ScanSubmitRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ScanSubmit(r.Context(), usecase.ScanSubmitInput{
		Token:       req.Token,
		MeetingDate: req.MeetingDate,
		GroupID:     req.GroupID,
	})
	if err != nil {
		return nil, err
	}

	return newScanSubmitResponse(resp.Outcome, resp.Attendance, resp.Token.Sequence), nil
}

// ArchiveList returns download links for archived token logs of a date.
// @Summary Archived token logs
// @Tags Attendance, Archive
// @Security BearerAuth
// @Produce json
// @Param date query string true "Meeting date (YYYY-MM-DD)"
// @Success 200 {object} router.successResponse{data=ArchiveListResponse} "Archived objects"
// @Router /api/v1/attendance/archives [get]
func (h *HTTPEndpoint) ArchiveList(r *router.Request) (any, error) {
	objs, err := h.uc.ArchiveList(r.Context(), usecase.ArchiveListInput{MeetingDate: r.GetQuery("date")})
	if err != nil {
		return nil, err
	}

	return ArchiveListResponse{
		Items: lo.Map(objs, func(o usecase.ArchiveObject, _ int) ArchiveItem {
			return ArchiveItem{Key: o.Key, Size: o.Size, URL: o.URL, CreatedAt: o.CreatedAt}
		}),
	}, nil
}
