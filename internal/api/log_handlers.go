package api

import (
	"net/http"
	"strconv"

	"grimm.is/iwaf/internal/eventlog"
)

// handleLogs returns log entries, most recent first. Query parameters:
// level (debug|info|warn|error|all) and limit.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, err := eventlog.ParseLevel(q.Get("level"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid log level", err.Error())
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
	}

	entries := []eventlog.Entry{}
	for e := range s.console.Logs(level) {
		if limit > 0 && len(entries) == limit {
			break
		}
		entries = append(entries, e)
	}
	WriteJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRefreshLogs(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, s.session(r).RefreshLogs())
}

// handleClearLogs requires ?confirm=true; without it nothing is cleared and
// the response is 409.
func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	out, _ := s.session(r).ClearLogs(confirmed(r))
	writeOutcome(w, out)
}
