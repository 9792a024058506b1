// Package notification manages the console's transient toasts: each notice is
// visible for a fixed time, plays a short exit phase and is then dropped.
package notification

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/logging"
)

// Severity constants
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Phase is where a notification is in its lifecycle.
type Phase string

const (
	PhaseVisible Phase = "visible"
	PhaseLeaving Phase = "leaving"
)

// Lifecycle timings.
const (
	VisibleFor = 3 * time.Second
	LeavingFor = 300 * time.Millisecond
)

// NormalizeSeverity maps unknown severities to info.
func NormalizeSeverity(s string) string {
	switch s {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return s
	}
	return SeverityInfo
}

// Notification is a single toast.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	Phase     Phase     `json:"phase"`
}

// phaseAt reports the phase at now and whether the notification is still alive.
func (n Notification) phaseAt(now time.Time) (Phase, bool) {
	age := now.Sub(n.CreatedAt)
	switch {
	case age < VisibleFor:
		return PhaseVisible, true
	case age < VisibleFor+LeavingFor:
		return PhaseLeaving, true
	}
	return "", false
}

// Emitter holds the active notification stack.
type Emitter struct {
	mu     sync.Mutex
	active []Notification
	clock  clock.Clock
	hub    *events.Hub
	logger *logging.Logger
}

// NewEmitter creates an emitter. hub and logger may be nil.
func NewEmitter(c clock.Clock, hub *events.Hub, logger *logging.Logger) *Emitter {
	if logger == nil {
		logger = logging.Default().WithComponent("notification")
	}
	return &Emitter{
		clock:  clock.Or(c),
		hub:    hub,
		logger: logger,
	}
}

// Notify pushes a new notification onto the stack and publishes it.
func (e *Emitter) Notify(message, severity string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  NormalizeSeverity(severity),
		CreatedAt: e.clock.Now(),
		Phase:     PhaseVisible,
	}

	e.mu.Lock()
	e.active = append(e.prune(n.CreatedAt), n)
	e.mu.Unlock()

	e.logger.Debug("notification", "severity", n.Severity, "message", n.Message)
	e.hub.Publish(events.Event{
		Type:      events.EventNotification,
		Timestamp: n.CreatedAt,
		Source:    "notification",
		Data:      n,
	})
	return n
}

// Active prunes expired notifications and returns the rest in creation order
// with their phase at now.
func (e *Emitter) Active(now time.Time) []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = e.prune(now)
	return slices.Clone(e.active)
}

// Dismiss removes a notification early.
func (e *Emitter) Dismiss(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.active)
	e.active = slices.DeleteFunc(e.active, func(x Notification) bool { return x.ID == id })
	return len(e.active) != n
}

// prune drops expired entries and refreshes phases. Caller holds the lock.
func (e *Emitter) prune(now time.Time) []Notification {
	kept := e.active[:0]
	for _, n := range e.active {
		phase, alive := n.phaseAt(now)
		if !alive {
			continue
		}
		n.Phase = phase
		kept = append(kept, n)
	}
	clear(e.active[len(kept):])
	return kept
}
