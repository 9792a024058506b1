package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/iwaf/internal/audit"
	"grimm.is/iwaf/internal/console"
)

func TestAudit_RecordsMutations(t *testing.T) {
	store, err := audit.NewStore(0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := newTestEnv(t, func(_ *console.Options, s *ServerOptions) { s.Audit = store })

	env.do(t, "GET", "/api/lists/blacklist", nil)
	env.do(t, "POST", "/api/lists/blacklist", AddIPRequest{IP: "10.0.0.1"})
	env.do(t, "POST", "/api/lists/blacklist", AddIPRequest{IP: "300.1.1.1"})
	env.do(t, "DELETE", "/api/logs", nil)

	rec := env.do(t, "GET", "/api/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []audit.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 3, "reads are not audited")

	assert.Equal(t, "DELETE /api/logs", events[0].Action)
	assert.Equal(t, http.StatusConflict, events[0].Status)
	assert.Equal(t, "POST /api/lists/{list}", events[2].Action)
	assert.Equal(t, "/api/lists/blacklist", events[2].Resource)
	assert.Equal(t, http.StatusOK, events[2].Status)
	assert.True(t, events[2].Timestamp.Equal(env.clock.Now()))

	rec = env.do(t, "GET", "/api/audit?limit=1&action="+url.QueryEscape("POST /api/lists/{list}"), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, http.StatusBadRequest, events[0].Status)

	rec = env.do(t, "GET", "/api/audit?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudit_Disabled(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, "GET", "/api/audit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
