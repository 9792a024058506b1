package api

import (
	"net/http"
	"strconv"

	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/view"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.console.Snapshot()
	WriteJSON(w, http.StatusOK, StatusResponse{
		Name:        brand.Name,
		Version:     brand.Version,
		Enabled:     snap.Config.Enabled,
		Restarting:  snap.Restarting,
		StartedAt:   snap.StartedAt,
		Uptime:      view.FormatUptime(i18n.GetPrinter(r.Context()), snap.Uptime),
		UptimeSecs:  int64(snap.Uptime.Seconds()),
		ThreatLevel: snap.Stats.ThreatLevel,
		Whitelist:   len(snap.Config.IPWhitelist),
		Blacklist:   len(snap.Config.IPBlacklist),
		LogEntries:  len(snap.Logs),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.console.Snapshot())
}

// handleDashboard serves the projected view model. Query parameters: tab,
// level, width, height.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, err := eventlog.ParseLevel(q.Get("level"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid log level", err.Error())
		return
	}
	opts := view.Options{
		Printer:   i18n.GetPrinter(r.Context()),
		ActiveTab: view.ParseTab(q.Get("tab")),
		LogLevel:  level,
	}
	if v, err := strconv.ParseFloat(q.Get("width"), 64); err == nil {
		opts.ChartWidth = v
	}
	if v, err := strconv.ParseFloat(q.Get("height"), 64); err == nil {
		opts.ChartHeight = v
	}
	WriteJSON(w, http.StatusOK, view.Project(s.console.Snapshot(), opts))
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running: s.console.SimulationRunning(),
		Tasks:   s.console.Tasks(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.console.Stats())
}

func (s *Server) handleSetThreat(w http.ResponseWriter, r *http.Request) {
	var req ThreatRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, _ := s.session(r).SetThreatLevel(req.Level)
	writeOutcome(w, out)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.console.Notifications())
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	if !s.console.DismissNotification(r.PathValue("id")) {
		WriteError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
