// Package events provides the pub/sub bus the console uses to fan state
// changes out to websocket clients and terminal sessions.
package events

import (
	"strings"
	"time"
)

// EventType identifies the category of event.
type EventType string

const (
	// Notification events carry a notification.Notification.
	EventNotification EventType = "notification.new"

	// Stats events carry a stats.Snapshot.
	EventStatsUpdate EventType = "stats.update"

	// Log events. Append carries an eventlog.Entry; clear carries nothing.
	EventLogAppend EventType = "logs.append"
	EventLogClear  EventType = "logs.clear"

	// Config events carry a ConfigChangeData.
	EventConfigChange EventType = "config.change"
	EventListChange   EventType = "config.list"

	// System events.
	EventRestart EventType = "system.restart"
)

// Topic returns the websocket topic an event is delivered on: the part of the
// type before the first dot.
func (t EventType) Topic() string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// Event is the core message passed through the event bus.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // Component that emitted: "console", "scheduler", ...
	Data      any       `json:"data"`   // Type-specific payload
}

// ConfigChangeData is the payload for EventConfigChange.
type ConfigChangeData struct {
	Section  string `json:"section"` // "security", "rate_limit", "system", "enabled"
	Revision int64  `json:"revision,omitempty"`
}

// ListChangeData is the payload for EventListChange.
type ListChangeData struct {
	List   string `json:"list"`
	IP     string `json:"ip"`
	Result string `json:"result"`
}

// RestartData is the payload for EventRestart.
type RestartData struct {
	Phase string `json:"phase"` // "restarting", "restarted"
}
