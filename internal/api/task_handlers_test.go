package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/iwaf/internal/scheduler"
)

func TestTaskHandlers(t *testing.T) {
	env := newTestEnv(t)
	before := env.console.Stats().TotalRequests

	rec := env.do(t, "POST", "/api/scheduler/tasks/"+scheduler.StatsTaskID+"/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st scheduler.TaskStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.EqualValues(t, 1, st.RunCount)
	assert.Greater(t, env.console.Stats().TotalRequests, before)

	rec = env.do(t, "PUT", "/api/scheduler/tasks/"+scheduler.LogsTaskID+"/enabled", TaskEnabledRequest{Enabled: false})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Enabled)

	rec = env.do(t, "GET", "/api/scheduler/tasks/"+scheduler.LogsTaskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":false`)

	rec = env.do(t, "GET", "/api/scheduler/status", nil)
	var status SchedulerStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Running)
	assert.Len(t, status.Tasks, 2)
}

func TestTaskHandlers_Unknown(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/scheduler/tasks/nope/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "PUT", "/api/scheduler/tasks/nope/enabled", TaskEnabledRequest{Enabled: true}, "Accept-Language", "zh-CN")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "未知任务: nope")

	rec = env.do(t, "GET", "/api/scheduler/tasks/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown task: nope")
}
