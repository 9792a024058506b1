package api

import (
	"net/http"

	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/iplist"
)

// listFromPath resolves the {list} path value or writes a 404.
func listFromPath(w http.ResponseWriter, r *http.Request) (iplist.Name, bool) {
	name, ok := iplist.ParseName(r.PathValue("list"))
	if !ok {
		WriteErrorCtx(w, r, http.StatusNotFound, i18n.MsgUnknownList, r.PathValue("list"))
	}
	return name, ok
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	name, ok := listFromPath(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, ListResponse{List: string(name), Entries: s.console.List(name)})
}

func (s *Server) handleAddToList(w http.ResponseWriter, r *http.Request) {
	name, ok := listFromPath(w, r)
	if !ok {
		return
	}
	var req AddIPRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, _ := s.session(r).AddIP(name, req.IP)
	writeOutcome(w, out)
}

func (s *Server) handleRemoveFromList(w http.ResponseWriter, r *http.Request) {
	name, ok := listFromPath(w, r)
	if !ok {
		return
	}
	writeOutcome(w, s.session(r).RemoveIP(name, r.PathValue("ip")))
}

func (s *Server) handleVerdict(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	WriteJSON(w, http.StatusOK, VerdictResponse{IP: ip, Verdict: string(s.console.Verdict(ip))})
}
