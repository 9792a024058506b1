package console

import (
	"time"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/notification"
	"grimm.is/iwaf/internal/stats"
)

// Verdict is how the lists would treat an address.
type Verdict string

const (
	VerdictAllowed   Verdict = "allowed"
	VerdictBlocked   Verdict = "blocked"
	VerdictInspected Verdict = "inspected"
)

// Snapshot is an immutable copy of everything the console shows.
type Snapshot struct {
	Config          *config.Config              `json:"config"`
	PendingSecurity *config.SecurityToggles     `json:"pending_security,omitempty"`
	Stats           stats.Snapshot              `json:"stats"`
	Logs            []eventlog.Entry            `json:"logs"`
	Notifications   []notification.Notification `json:"notifications"`
	StartedAt       time.Time                   `json:"started_at"`
	Now             time.Time                   `json:"now"`
	Uptime          time.Duration               `json:"uptime"`
	Restarting      bool                        `json:"restarting"`
}

// Snapshot copies the current state.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	return Snapshot{
		Config:          c.configLocked(),
		PendingSecurity: c.cfg.PendingSecurityToggles(),
		Stats:           c.stats.Snapshot(),
		Logs:            c.logs.All(),
		Notifications:   c.notes.Active(now),
		StartedAt:       c.startedAt,
		Now:             now,
		Uptime:          now.Sub(c.startedAt),
		Restarting:      c.restarting,
	}
}

// Stats returns the current counters.
func (c *Console) Stats() stats.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Snapshot()
}

// Notifications returns the active toasts in creation order.
func (c *Console) Notifications() []notification.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notes.Active(c.clock.Now())
}
