package health

import (
	"context"
	"fmt"
	"strings"

	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/scheduler"
	"grimm.is/iwaf/internal/state"
)

// SchedulerCheck is degraded while any simulation task's last run failed.
func SchedulerCheck(tasks func() []scheduler.TaskStatus) CheckFunc {
	return func(ctx context.Context) Check {
		var failing []string
		var runs int64
		for _, t := range tasks() {
			runs += t.RunCount
			if t.LastError != "" {
				failing = append(failing, t.ID+": "+t.LastError)
			}
		}
		if len(failing) > 0 {
			return Check{Status: StatusDegraded, Message: strings.Join(failing, "; ")}
		}
		return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d task runs", runs)}
	}
}

// RevisionCheck is unhealthy when the revision store cannot be queried. A
// nil store means history is disabled, which is healthy.
func RevisionCheck(store *state.RevisionStore) CheckFunc {
	return func(ctx context.Context) Check {
		if store == nil {
			return Check{Status: StatusHealthy, Message: "revision history disabled"}
		}
		n, err := store.Count(ctx)
		if err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy, Message: fmt.Sprintf("%d revisions", n)}
	}
}

// EventsCheck is degraded once the hub has dropped events for a slow
// subscriber.
func EventsCheck(hub *events.Hub) CheckFunc {
	return func(ctx context.Context) Check {
		published, dropped := hub.Stats()
		msg := fmt.Sprintf("%d published, %d dropped", published, dropped)
		if dropped > 0 {
			return Check{Status: StatusDegraded, Message: msg}
		}
		return Check{Status: StatusHealthy, Message: msg}
	}
}
