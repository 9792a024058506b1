package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/state"
)

// NoChanges is the diff body when both sides match.
const NoChanges = "No changes."

// DiffHCL renders a unified diff between two HCL documents.
func DiffHCL(from, to, fromName, toName string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	if text == "" {
		return NoChanges
	}
	return text
}

// handleConfigDiff diffs two revisions as HCL. "to" is a revision ID or
// "running" and defaults to the latest revision; "from" defaults to the
// revision before "to".
func (s *Server) handleConfigDiff(w http.ResponseWriter, r *http.Request) {
	revs := s.console.Revisions()
	if revs == nil {
		WriteErrorCtx(w, r, http.StatusServiceUnavailable, i18n.MsgHistoryDisabled)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	var (
		toText, toName string
		toID           int64
	)
	switch v := q.Get("to"); v {
	case "running":
		toText, toName = string(config.MarshalHCL(s.console.Config())), "running"
	default:
		var (
			rev *state.Revision
			err error
		)
		if v == "" {
			rev, err = revs.Latest(ctx)
		} else {
			id, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				WriteError(w, http.StatusBadRequest, "invalid 'to' revision")
				return
			}
			rev, err = revs.Get(ctx, id)
		}
		if err != nil {
			s.writeRevisionError(w, r, err)
			return
		}
		toText, toName, toID = rev.HCL, revisionName(rev), rev.ID
	}

	var (
		from *state.Revision
		err  error
	)
	if v := q.Get("from"); v != "" {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			WriteError(w, http.StatusBadRequest, "invalid 'from' revision")
			return
		}
		from, err = revs.Get(ctx, id)
	} else {
		from, err = previousRevision(ctx, revs, toID)
	}
	if err != nil {
		s.writeRevisionError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(DiffHCL(from.HCL, toText, revisionName(from), toName)))
}

func (s *Server) writeRevisionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, state.ErrNotFound) {
		WriteErrorCtx(w, r, http.StatusNotFound, i18n.MsgRevisionNotFound)
		return
	}
	s.logger.Error("failed to load revision", "error", err)
	WriteError(w, http.StatusInternalServerError, "failed to load revision")
}

// previousRevision returns the newest revision older than id. With id zero
// (diffing the running config) it returns the latest revision.
func previousRevision(ctx context.Context, revs *state.RevisionStore, id int64) (*state.Revision, error) {
	if id == 0 {
		return revs.Latest(ctx)
	}
	headers, err := revs.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		if h.ID < id {
			return revs.Get(ctx, h.ID)
		}
	}
	return nil, state.ErrNotFound
}

func revisionName(rev *state.Revision) string {
	return fmt.Sprintf("revision %d (%s)", rev.ID, rev.Section)
}
