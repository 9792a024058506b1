package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/i18n"
)

// getClientIP extracts the client IP from the request.
// Respects X-Forwarded-For and X-Real-IP headers for proxy situations.
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		ip := strings.TrimSpace(ips[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteError sends a JSON error response
func WriteError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := ErrorResponse{Error: message}
	if len(details) > 0 {
		resp.Details = details[0]
	}
	json.NewEncoder(w).Encode(resp)
}

// WriteJSON sends a JSON success response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteErrorCtx sends a localized JSON error response
func WriteErrorCtx(w http.ResponseWriter, r *http.Request, code int, format string, args ...any) {
	p := i18n.GetPrinter(r.Context())
	WriteError(w, code, p.Sprintf(format, args...))
}

// session runs console operations in the request's language.
func (s *Server) session(r *http.Request) console.Session {
	return s.console.For(i18n.GetPrinter(r.Context()))
}

// OutcomeStatus maps an outcome kind to its HTTP status.
func OutcomeStatus(kind console.Kind) int {
	switch kind {
	case console.KindInvalid:
		return http.StatusBadRequest
	case console.KindUnconfirmed:
		return http.StatusConflict
	}
	return http.StatusOK
}

// writeOutcome sends an operation's outcome with the matching status.
func writeOutcome(w http.ResponseWriter, out console.Outcome) {
	WriteJSON(w, OutcomeStatus(out.Kind), out)
}

// errorStatus maps console sentinel errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, console.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, console.ErrUnconfirmed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// confirmed reports whether the request carries confirm=true.
func confirmed(r *http.Request) bool {
	v := r.URL.Query().Get("confirm")
	return v == "true" || v == "1" || v == "yes"
}
