package api

import (
	"time"

	"grimm.is/iwaf/internal/scheduler"
	"grimm.is/iwaf/internal/stats"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
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

// SchedulerStatusResponse lists the simulation tasks.
type SchedulerStatusResponse struct {
	Running bool                   `json:"running"`
	Tasks   []scheduler.TaskStatus `json:"tasks"`
}

// TaskEnabledRequest is the body of PUT /api/scheduler/tasks/{id}/enabled.
type TaskEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ListResponse is one IP list.
type ListResponse struct {
	List    string   `json:"list"`
	Entries []string `json:"entries"`
}

// AddIPRequest is the body of POST /api/lists/{list}.
type AddIPRequest struct {
	IP string `json:"ip"`
}

// EnabledRequest is the body of PUT /api/config/enabled.
type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ThreatRequest is the body of PUT /api/stats/threat.
type ThreatRequest struct {
	Level string `json:"level"`
}

// VerdictResponse reports how the lists treat an address.
type VerdictResponse struct {
	IP      string `json:"ip"`
	Verdict string `json:"verdict"`
}
