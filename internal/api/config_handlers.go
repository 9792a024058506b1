package api

import (
	"errors"
	"net/http"
	"strconv"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/state"
)

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.console.Config())
}

var exportContentTypes = map[string]string{
	config.FormatHCL:  "text/plain; charset=utf-8",
	config.FormatJSON: "application/json",
	config.FormatYAML: "application/yaml",
}

func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = config.FormatHCL
	}
	data, err := s.console.ExportConfig(format)
	if err != nil {
		WriteError(w, errorStatus(err), "export failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Write(data)
}

func (s *Server) handleCommitSecurity(w http.ResponseWriter, r *http.Request) {
	var t config.SecurityToggles
	if err := decodeJSON(r, &t); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOutcome(w, s.session(r).CommitSecurityToggles(t))
}

func (s *Server) handleResetSecurity(w http.ResponseWriter, r *http.Request) {
	out := s.session(r).ResetSecurityToggles()
	WriteJSON(w, http.StatusOK, struct {
		Outcome any                     `json:"outcome"`
		Pending *config.SecurityToggles `json:"pending"`
	}{out, s.console.PendingSecurityToggles()})
}

func (s *Server) handleCommitRateLimit(w http.ResponseWriter, r *http.Request) {
	var form config.RateLimitForm
	if err := decodeJSON(r, &form); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, _ := s.session(r).CommitRateLimit(form)
	writeOutcome(w, out)
}

func (s *Server) handleCommitSystem(w http.ResponseWriter, r *http.Request) {
	var form config.SystemForm
	if err := decodeJSON(r, &form); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, _ := s.session(r).CommitSystem(form)
	writeOutcome(w, out)
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req EnabledRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOutcome(w, s.session(r).SetEnabled(req.Enabled))
}

func (s *Server) handleRevisions(w http.ResponseWriter, r *http.Request) {
	revs := s.console.Revisions()
	if revs == nil {
		WriteErrorCtx(w, r, http.StatusServiceUnavailable, i18n.MsgHistoryDisabled)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}
	list, err := revs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list revisions", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to list revisions")
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleRevision(w http.ResponseWriter, r *http.Request) {
	revs := s.console.Revisions()
	if revs == nil {
		WriteErrorCtx(w, r, http.StatusServiceUnavailable, i18n.MsgHistoryDisabled)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid revision id")
		return
	}
	rev, err := revs.Get(r.Context(), id)
	if errors.Is(err, state.ErrNotFound) {
		WriteErrorCtx(w, r, http.StatusNotFound, i18n.MsgRevisionNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load revision", "id", id, "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to load revision")
		return
	}
	WriteJSON(w, http.StatusOK, rev)
}
