// Package client provides an API client for remote iwaf management.
package client

import (
	"bytes"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"grimm.is/iwaf/internal/audit"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/notification"
	"grimm.is/iwaf/internal/state"
	"grimm.is/iwaf/internal/stats"
	"grimm.is/iwaf/internal/view"

	"github.com/gorilla/websocket"
)

// Status mirrors the API status response.
// Defined locally to avoid importing the heavy internal/api package.
type Status struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Enabled     bool              `json:"enabled"`
	Restarting  bool              `json:"restarting"`
	StartedAt   time.Time         `json:"started_at"`
	Uptime      string            `json:"uptime"`
	UptimeSecs  int64             `json:"uptime_seconds"`
	ThreatLevel stats.ThreatLevel `json:"threat_level"`
	Whitelist   int               `json:"whitelist_entries"`
	Blacklist   int               `json:"blacklist_entries"`
	LogEntries  int               `json:"log_entries"`
}

// APIError is returned for non-2xx responses that do not carry an outcome.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error (status %d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// HTTPClient talks to a running console over its HTTP API.
type HTTPClient struct {
	baseURL             string
	lang                string
	httpClient          *http.Client
	expectedFingerprint string
	SeenFingerprint     string
}

// ClientOption configures the HTTPClient.
type ClientOption func(*HTTPClient)

// WithFingerprint sets the expected server certificate fingerprint (SHA-256 hex).
func WithFingerprint(fp string) ClientOption {
	return func(c *HTTPClient) {
		c.expectedFingerprint = fp
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = d
	}
}

// WithLanguage sends lang as Accept-Language so localized endpoints answer
// in that language.
func WithLanguage(lang string) ClientOption {
	return func(c *HTTPClient) {
		c.lang = lang
	}
}

// NewHTTPClient creates a new HTTPClient for the given base URL.
// Self-signed certificates are accepted unless a fingerprint is pinned.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // verified via VerifyPeerCertificate
			VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
				if len(rawCerts) == 0 {
					return nil
				}
				hash := sha256.Sum256(rawCerts[0])
				fingerprint := hex.EncodeToString(hash[:])
				c.SeenFingerprint = fingerprint

				if c.expectedFingerprint != "" && c.expectedFingerprint != fingerprint {
					return fmt.Errorf("certificate fingerprint mismatch! Expected %s, got %s", c.expectedFingerprint, fingerprint)
				}
				return nil
			},
		},
	}

	return c
}

// send performs the request and returns the status and raw body.
func (c *HTTPClient) send(method, path string, body any) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func apiError(status int, body []byte) error {
	e := &APIError{StatusCode: status}
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		e.Message, e.Details = payload.Error, payload.Details
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

// doRequest performs an HTTP request and decodes the JSON response.
func (c *HTTPClient) doRequest(method, path string, body, result any) error {
	status, respBody, err := c.send(method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apiError(status, respBody)
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// doOutcome performs a mutating request. Rejections (400, 409) still carry
// an outcome; it is returned together with the matching console error. A
// duplicate is an outcome, not an error, as it is for the console itself.
func (c *HTTPClient) doOutcome(method, path string, body any) (console.Outcome, error) {
	status, respBody, err := c.send(method, path, body)
	if err != nil {
		return console.Outcome{}, err
	}
	var out console.Outcome
	if json.Unmarshal(respBody, &out) != nil || out.Kind == "" {
		if status < 200 || status >= 300 {
			return console.Outcome{}, apiError(status, respBody)
		}
		return console.Outcome{}, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(respBody)))
	}
	if out.Kind == console.KindDuplicate {
		return out, nil
	}
	return out, out.Err()
}

// GetStatus retrieves the server status.
func (c *HTTPClient) GetStatus() (*Status, error) {
	var st Status
	if err := c.doRequest(http.MethodGet, "/api/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetConfig retrieves the running configuration.
func (c *HTTPClient) GetConfig() (*config.Config, error) {
	var cfg config.Config
	if err := c.doRequest(http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ExportConfig returns the running configuration rendered as format.
func (c *HTTPClient) ExportConfig(format string) ([]byte, error) {
	status, body, err := c.send(http.MethodGet, "/api/config/export?format="+url.QueryEscape(format), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}
	return body, nil
}

// GetSnapshot retrieves the raw console snapshot.
func (c *HTTPClient) GetSnapshot() (*console.Snapshot, error) {
	var snap console.Snapshot
	if err := c.doRequest(http.MethodGet, "/api/snapshot", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DashboardArgs selects the dashboard projection.
type DashboardArgs struct {
	Tab    view.TabID
	Level  eventlog.Level
	Width  float64
	Height float64
}

// GetDashboard retrieves the projected dashboard, localized per WithLanguage.
func (c *HTTPClient) GetDashboard(args DashboardArgs) (*view.Dashboard, error) {
	q := url.Values{}
	if args.Tab != "" {
		q.Set("tab", string(args.Tab))
	}
	if args.Level != "" {
		q.Set("level", string(args.Level))
	}
	if args.Width > 0 {
		q.Set("width", strconv.FormatFloat(args.Width, 'f', -1, 64))
	}
	if args.Height > 0 {
		q.Set("height", strconv.FormatFloat(args.Height, 'f', -1, 64))
	}
	path := "/api/dashboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var d view.Dashboard
	if err := c.doRequest(http.MethodGet, path, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// --- IP lists ---

// GetList returns the entries of a list.
func (c *HTTPClient) GetList(name iplist.Name) ([]string, error) {
	var resp struct {
		Entries []string `json:"entries"`
	}
	if err := c.doRequest(http.MethodGet, "/api/lists/"+string(name), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// AddIP adds ip to a list.
func (c *HTTPClient) AddIP(name iplist.Name, ip string) (console.Outcome, error) {
	return c.doOutcome(http.MethodPost, "/api/lists/"+string(name), map[string]string{"ip": ip})
}

// RemoveIP removes ip from a list.
func (c *HTTPClient) RemoveIP(name iplist.Name, ip string) (console.Outcome, error) {
	return c.doOutcome(http.MethodDelete, "/api/lists/"+string(name)+"/"+url.PathEscape(ip), nil)
}

// Verdict reports how the lists treat ip.
func (c *HTTPClient) Verdict(ip string) (console.Verdict, error) {
	var resp struct {
		Verdict console.Verdict `json:"verdict"`
	}
	if err := c.doRequest(http.MethodGet, "/api/verdict/"+url.PathEscape(ip), nil, &resp); err != nil {
		return "", err
	}
	return resp.Verdict, nil
}

// --- Settings ---

// CommitSecurityToggles commits the security form.
func (c *HTTPClient) CommitSecurityToggles(t config.SecurityToggles) (console.Outcome, error) {
	return c.doOutcome(http.MethodPut, "/api/config/security", t)
}

// ResetSecurityToggles resets the security form to its defaults and
// returns the pending values. The committed configuration is unchanged.
func (c *HTTPClient) ResetSecurityToggles() (console.Outcome, *config.SecurityToggles, error) {
	var resp struct {
		Outcome console.Outcome         `json:"outcome"`
		Pending *config.SecurityToggles `json:"pending"`
	}
	if err := c.doRequest(http.MethodPost, "/api/config/security/reset", nil, &resp); err != nil {
		return console.Outcome{}, nil, err
	}
	return resp.Outcome, resp.Pending, nil
}

// CommitRateLimit commits the rate-limit form.
func (c *HTTPClient) CommitRateLimit(form config.RateLimitForm) (console.Outcome, error) {
	return c.doOutcome(http.MethodPut, "/api/config/ratelimit", form)
}

// CommitSystem commits the system settings form.
func (c *HTTPClient) CommitSystem(form config.SystemForm) (console.Outcome, error) {
	return c.doOutcome(http.MethodPut, "/api/config/system", form)
}

// SetEnabled turns protection on or off.
func (c *HTTPClient) SetEnabled(enabled bool) (console.Outcome, error) {
	return c.doOutcome(http.MethodPut, "/api/config/enabled", map[string]bool{"enabled": enabled})
}

// GetRevisions lists configuration revisions, newest first.
func (c *HTTPClient) GetRevisions(limit int) ([]state.Revision, error) {
	path := "/api/config/revisions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var revs []state.Revision
	if err := c.doRequest(http.MethodGet, path, nil, &revs); err != nil {
		return nil, err
	}
	return revs, nil
}

// GetAudit returns the newest audit events, optionally filtered to one
// action such as "POST /api/lists/{list}".
func (c *HTTPClient) GetAudit(limit int, action string) ([]audit.Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if action != "" {
		q.Set("action", action)
	}
	path := "/api/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var events []audit.Event
	if err := c.doRequest(http.MethodGet, path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetDiff returns a unified diff between two revisions. Empty arguments use
// the server defaults (previous against latest); to may also be "running".
func (c *HTTPClient) GetDiff(from, to string) (string, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/api/config/diff"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	status, body, err := c.send(http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", apiError(status, body)
	}
	return string(body), nil
}

// --- Stats and notifications ---

// GetStats retrieves the live counters.
func (c *HTTPClient) GetStats() (*stats.Snapshot, error) {
	var s stats.Snapshot
	if err := c.doRequest(http.MethodGet, "/api/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetThreatLevel overrides the threat indicator.
func (c *HTTPClient) SetThreatLevel(level string) (console.Outcome, error) {
	return c.doOutcome(http.MethodPut, "/api/stats/threat", map[string]string{"level": level})
}

// GetNotifications returns the visible notifications.
func (c *HTTPClient) GetNotifications() ([]notification.Notification, error) {
	var notes []notification.Notification
	if err := c.doRequest(http.MethodGet, "/api/notifications", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// DismissNotification removes a notification before it expires.
func (c *HTTPClient) DismissNotification(id string) error {
	return c.doRequest(http.MethodDelete, "/api/notifications/"+url.PathEscape(id), nil, nil)
}

// --- Logs ---

// GetLogsArgs filters GetLogs.
type GetLogsArgs struct {
	Level eventlog.Level
	Limit int
}

// GetLogs retrieves log entries, most recent first.
func (c *HTTPClient) GetLogs(args GetLogsArgs) ([]eventlog.Entry, error) {
	q := url.Values{}
	if args.Level != "" {
		q.Set("level", string(args.Level))
	}
	if args.Limit > 0 {
		q.Set("limit", strconv.Itoa(args.Limit))
	}
	path := "/api/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []eventlog.Entry
	if err := c.doRequest(http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RefreshLogs appends the refresh marker entry.
func (c *HTTPClient) RefreshLogs() (console.Outcome, error) {
	return c.doOutcome(http.MethodPost, "/api/logs/refresh", nil)
}

// ClearLogs empties the log. Without confirmation the server refuses.
func (c *HTTPClient) ClearLogs(confirmed bool) (console.Outcome, error) {
	return c.doOutcome(http.MethodDelete, "/api/logs?confirm="+strconv.FormatBool(confirmed), nil)
}

// Restart schedules a restart. Without confirmation the server refuses.
func (c *HTTPClient) Restart(confirmed bool) (console.Outcome, error) {
	return c.doOutcome(http.MethodPost, "/api/system/restart?confirm="+strconv.FormatBool(confirmed), nil)
}

// --- Streaming ---

// Event is one message received from the event stream.
type Event struct {
	Topic     string          `json:"-"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Watch connects to the WebSocket endpoint and calls onEvent for every event
// on the given topics. It blocks until the connection fails or stop is
// closed; a nil stop blocks until the connection fails.
func (c *HTTPClient) Watch(topics []string, stop <-chan struct{}, onEvent func(Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/ws"

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
	}
	// Use TLS config from HTTP client (includes fingerprint verification)
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		dialer.TLSClientConfig = transport.TLSClientConfig
	}

	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial websocket: %w", err)
	}
	defer conn.Close()

	if stop != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-stop:
				conn.Close()
			case <-done:
			}
		}()
	}

	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "topics": topics}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			return fmt.Errorf("read error: %w", err)
		}

		var msg struct {
			Topic string `json:"topic"`
			Data  Event  `json:"data"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Skip malformed
		}
		msg.Data.Topic = msg.Topic
		onEvent(msg.Data)
	}
}
