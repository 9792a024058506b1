package api

import (
	"errors"
	"net/http"

	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/scheduler"
)

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok := s.console.Task(id)
	if !ok {
		WriteErrorCtx(w, r, http.StatusNotFound, i18n.MsgUnknownTask, id)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// handleRunTask fires a simulation tick now. The response carries the
// task's status after the run.
func (s *Server) handleRunTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.console.RunTask(id); err != nil {
		s.writeTaskError(w, r, id, err)
		return
	}
	st, _ := s.console.Task(id)
	WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleEnableTask(w http.ResponseWriter, r *http.Request) {
	var req TaskEnabledRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	if err := s.console.EnableTask(id, req.Enabled); err != nil {
		s.writeTaskError(w, r, id, err)
		return
	}
	st, _ := s.console.Task(id)
	WriteJSON(w, http.StatusOK, st)
}

func (s *Server) writeTaskError(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, scheduler.ErrTaskNotFound) {
		WriteErrorCtx(w, r, http.StatusNotFound, i18n.MsgUnknownTask, id)
		return
	}
	s.logger.Error("task control failed", "task", id, "error", err)
	WriteError(w, http.StatusInternalServerError, "task control failed", err.Error())
}
