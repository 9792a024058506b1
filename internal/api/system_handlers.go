package api

import (
	"errors"
	"net/http"

	"grimm.is/iwaf/internal/console"
)

// handleRestart requires ?confirm=true. Completion is announced through a
// notification two seconds later.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	out, err := s.session(r).Restart(confirmed(r))
	if err != nil && !errors.Is(err, console.ErrUnconfirmed) {
		WriteError(w, http.StatusInternalServerError, "restart failed", err.Error())
		return
	}
	writeOutcome(w, out)
}
