package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/ratelimit"
	"grimm.is/iwaf/internal/state"
	"grimm.is/iwaf/internal/testutil"
	"grimm.is/iwaf/internal/view"
)

type testEnv struct {
	server  *Server
	console *console.Console
	clock   *clock.Mock
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate ...func(*console.Options, *ServerOptions)) *testEnv {
	t.Helper()
	sopts := ServerOptions{Logger: testutil.Logger()}
	c, mc := testutil.NewConsole(t, func(copts *console.Options) {
		for _, m := range mutate {
			m(copts, &sopts)
		}
	})
	sopts.Console = c
	s, err := NewServer(sopts)
	require.NoError(t, err)
	t.Cleanup(s.wsManager.Close)
	return &testEnv{server: s, console: c, clock: mc, handler: s.Handler()}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) console.Outcome {
	t.Helper()
	var out console.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServer_RequiresConsole(t *testing.T) {
	_, err := NewServer(ServerOptions{})
	assert.Error(t, err)
}

func TestOutcomeStatus(t *testing.T) {
	tests := map[console.Kind]int{
		console.KindSuccess:     http.StatusOK,
		console.KindDuplicate:   http.StatusOK,
		console.KindRemoved:     http.StatusOK,
		console.KindInfo:        http.StatusOK,
		console.KindInvalid:     http.StatusBadRequest,
		console.KindUnconfirmed: http.StatusConflict,
	}
	for kind, want := range tests {
		assert.Equal(t, want, OutcomeStatus(kind), kind)
	}
}

func TestStatusAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.clock.Advance(90 * time.Minute)

	rec := env.do(t, "GET", "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Enabled)
	assert.Equal(t, "1h 30m", status.Uptime)
	assert.Equal(t, 2, status.Whitelist)
	assert.Equal(t, 5, status.LogEntries)

	rec = env.do(t, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scheduler"`)
	assert.Equal(t, "READY", env.do(t, "GET", "/readyz", nil).Body.String())
}

func TestListHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/lists/blacklist", AddIPRequest{IP: "10.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	out := decodeOutcome(t, rec)
	assert.Equal(t, console.KindSuccess, out.Kind)
	assert.Equal(t, "IP 10.0.0.1 added to blacklist", out.Message)

	rec = env.do(t, "POST", "/api/lists/blacklist", AddIPRequest{IP: "10.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, console.KindDuplicate, decodeOutcome(t, rec).Kind)

	rec = env.do(t, "POST", "/api/lists/blacklist", AddIPRequest{IP: "300.1.1.1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, console.KindInvalid, decodeOutcome(t, rec).Kind)

	rec = env.do(t, "POST", "/api/lists/greylist", AddIPRequest{IP: "10.0.0.1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "GET", "/api/lists/blacklist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"192.168.1.100", "10.0.0.1"}, list.Entries)

	rec = env.do(t, "GET", "/api/verdict/10.0.0.1", nil)
	assert.Contains(t, rec.Body.String(), `"blocked"`)

	rec = env.do(t, "DELETE", "/api/lists/whitelist/::1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, console.KindRemoved, decodeOutcome(t, rec).Kind)
	assert.Equal(t, []string{"127.0.0.1"}, env.console.List("whitelist"))
}

func TestConfigHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "PUT", "/api/config/ratelimit", config.RateLimitForm{Enabled: true, RequestsPerMinute: "lots", Burst: "5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 120, env.console.Config().RateLimit.RequestsPerMinute)

	rec = env.do(t, "PUT", "/api/config/ratelimit", config.RateLimitForm{Enabled: true, RequestsPerMinute: "300", Burst: "30"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 300, env.console.Config().RateLimit.RequestsPerMinute)

	rec = env.do(t, "PUT", "/api/config/system", config.SystemForm{LogLevel: "trace", Action: "block"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "PUT", "/api/config/security", config.SecurityToggles{SQLInjection: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.console.Config().XSSProtection.Enabled)

	rec = env.do(t, "POST", "/api/config/security/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending"`)
	assert.False(t, env.console.Config().XSSProtection.Enabled)

	rec = env.do(t, "PUT", "/api/config/enabled", EnabledRequest{Enabled: false})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.console.Config().Enabled)

	rec = env.do(t, "PUT", "/api/config/enabled", map[string]any{"enabled": true, "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportConfig(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/config/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.IPWhitelist)

	rec = env.do(t, "GET", "/api/config/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limit {")

	rec = env.do(t, "GET", "/api/config/export?format=ini", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/logs?level=error", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []eventlog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "malicious request blocked", entries[0].Message)

	rec = env.do(t, "GET", "/api/logs?level=loud", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/api/logs?limit=2", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	rec = env.do(t, "POST", "/api/logs/refresh", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.console.Snapshot().Logs, 6)

	rec = env.do(t, "DELETE", "/api/logs", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, console.KindUnconfirmed, decodeOutcome(t, rec).Kind)
	assert.Len(t, env.console.Snapshot().Logs, 6)

	rec = env.do(t, "DELETE", "/api/logs?confirm=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.console.Snapshot().Logs)
}

func TestRestartHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/system/restart", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "POST", "/api/system/restart?confirm=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "restarting WAF...", decodeOutcome(t, rec).Message)

	env.console.RunDue(env.clock.Advance(2 * time.Second))
	rec = env.do(t, "GET", "/api/notifications", nil)
	assert.Contains(t, rec.Body.String(), "WAF restarted")
}

func TestStatsHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "PUT", "/api/stats/threat", ThreatRequest{Level: "critical"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "PUT", "/api/stats/threat", ThreatRequest{Level: "apocalyptic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/api/stats", nil)
	assert.Contains(t, rec.Body.String(), `"threat_level":"critical"`)

	rec = env.do(t, "GET", "/api/scheduler/status", nil)
	assert.Contains(t, rec.Body.String(), "stats-simulate")
}

func TestNotificationDismiss(t *testing.T) {
	env := newTestEnv(t)
	env.console.RefreshLogs()
	id := env.console.Notifications()[0].ID

	rec := env.do(t, "DELETE", "/api/notifications/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.console.Notifications())

	rec = env.do(t, "DELETE", "/api/notifications/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard_Localized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/dashboard?tab=logs&level=warn", nil, "Accept-Language", "zh-CN,zh;q=0.9")
	require.Equal(t, http.StatusOK, rec.Code)
	var d view.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "运行中", d.Status.Label)
	assert.Equal(t, "1,245", d.Counters[0].Display)
	require.Len(t, d.Logs, 1)
	assert.Equal(t, "WARN", d.Logs[0].Level)
	assert.Equal(t, "检测到SQL注入尝试", d.Logs[0].Message)
	assert.True(t, d.Tabs[3].Active)

	rec = env.do(t, "GET", "/api/dashboard", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "Running", d.Status.Label)
}

func TestOutcome_Localized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/lists/whitelist", AddIPRequest{IP: "10.0.0.9"}, "Accept-Language", "zh-CN")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeOutcome(t, rec)
	assert.Equal(t, console.KindSuccess, out.Kind)
	assert.Equal(t, "IP 10.0.0.9 已添加到白名单", out.Message)

	notes := env.console.Snapshot().Notifications
	require.NotEmpty(t, notes)
	assert.Equal(t, out.Message, notes[len(notes)-1].Message)

	rec = env.do(t, "POST", "/api/lists/whitelist", AddIPRequest{IP: "10.0.0.10"})
	assert.Equal(t, "IP 10.0.0.10 added to whitelist", decodeOutcome(t, rec).Message)
}

func TestError_Localized(t *testing.T) {
	env := newTestEnv(t)

	decodeError := func(rec *httptest.ResponseRecorder) ErrorResponse {
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
		return e
	}

	rec := env.do(t, "GET", "/api/lists/greylist", nil, "Accept-Language", "zh-CN")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "未知名单: greylist", decodeError(rec).Error)

	rec = env.do(t, "GET", "/api/config/diff", nil, "Accept-Language", "zh-CN")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "配置历史未启用", decodeError(rec).Error)

	rec = env.do(t, "GET", "/api/audit", nil)
	assert.Equal(t, "audit trail disabled", decodeError(rec).Error)
}

func TestConfigDiff(t *testing.T) {
	revs, err := state.Open(state.Options{Path: state.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { revs.Close() })

	env := newTestEnv(t, func(o *console.Options, _ *ServerOptions) { o.Revisions = revs })

	rec := env.do(t, "GET", "/api/config/diff?to=running", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, NoChanges, rec.Body.String())

	rec = env.do(t, "GET", "/api/config/diff", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "only one revision so far")

	_, err = env.console.AddBlacklistIP("198.51.100.4")
	require.NoError(t, err)

	rec = env.do(t, "GET", "/api/config/diff", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "--- revision 1 (initial)")
	assert.Contains(t, body, "+++ revision 2 (lists)")
	assert.Regexp(t, `\+ip_blacklist\s+= \["192\.168\.1\.100", "198\.51\.100\.4"\]`, body)

	rec = env.do(t, "GET", "/api/config/revisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []state.Revision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)

	rec = env.do(t, "GET", "/api/config/revisions/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigDiff_Disabled(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/api/config/diff", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDiffHCL(t *testing.T) {
	assert.Equal(t, NoChanges, DiffHCL("a\n", "a\n", "x", "y"))
	diff := DiffHCL("enabled = true\n", "enabled = false\n", "old", "new")
	assert.True(t, strings.HasPrefix(diff, "--- old\n+++ new\n"))
	assert.Contains(t, diff, "-enabled = true")
	assert.Contains(t, diff, "+enabled = false")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(_ *console.Options, o *ServerOptions) {
		o.RateLimit = ratelimit.Config{RequestsPerSecond: 1, Burst: 2, EntryTTL: time.Minute}
	})

	for range 2 {
		assert.Equal(t, http.StatusOK, env.do(t, "GET", "/api/stats", nil).Code)
	}
	rec := env.do(t, "GET", "/api/stats", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other clients and non-API routes are unaffected.
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/api/stats", nil, "X-Forwarded-For", "203.0.113.9").Code)
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/healthz", nil).Code)

	env.clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/api/stats", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "GET", "/api/stats", nil)

	rec := env.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "iwaf_requests_total")
	assert.Contains(t, body, `path="/api/stats"`)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.2")
	assert.Equal(t, "192.0.2.2", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.3, 10.0.0.1")
	assert.Equal(t, "192.0.2.3", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.0.2.2", getClientIP(req))
}
