package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grimm.is/iwaf/internal/audit"
	"grimm.is/iwaf/internal/i18n"
)

// auditable reports whether a request changes console state.
func auditable(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// recordAudit stores a finished mutating request.
func (s *Server) recordAudit(r *http.Request, route string, status int) {
	if s.audit == nil || !auditable(r) {
		return
	}
	// The request context is done once the response is written.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.audit.Write(ctx, audit.Event{
		Timestamp: s.console.Clock().Now(),
		Action:    r.Method + " " + route,
		Resource:  r.URL.Path,
		Status:    status,
		IP:        getClientIP(r),
		Agent:     r.UserAgent(),
	})
	if err != nil {
		s.logger.Warn("audit write failed", "error", err)
	}
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		WriteErrorCtx(w, r, http.StatusServiceUnavailable, i18n.MsgAuditDisabled)
		return
	}
	q := audit.Query{Limit: 50, Action: r.URL.Query().Get("action")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid since", v)
			return
		}
		q.Since = since
	}
	events, err := s.audit.List(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to list audit events", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	WriteJSON(w, http.StatusOK, events)
}
