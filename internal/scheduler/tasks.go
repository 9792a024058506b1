package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Simulation periods.
const (
	StatsInterval = 30 * time.Second
	LogsInterval  = 15 * time.Second
)

// Simulation task IDs.
const (
	StatsTaskID = "stats-simulate"
	LogsTaskID  = "logs-simulate"
)

// TaskRegistry holds the console hooks the simulation tasks drive.
type TaskRegistry struct {
	TickStats func()
	TickLogs  func()
}

// NewStatsTask creates the traffic counter simulation task.
func NewStatsTask(registry *TaskRegistry, interval time.Duration) *Task {
	return &Task{
		ID:          StatsTaskID,
		Name:        "Stats Simulation",
		Description: "Advance the simulated request counters",
		Schedule:    Every(interval),
		Enabled:     true,
		Func: func(ctx context.Context) error {
			if registry.TickStats == nil {
				return fmt.Errorf("stats tick function not configured")
			}
			registry.TickStats()
			return nil
		},
	}
}

// NewLogTask creates the synthetic log traffic task.
func NewLogTask(registry *TaskRegistry, interval time.Duration) *Task {
	return &Task{
		ID:          LogsTaskID,
		Name:        "Log Simulation",
		Description: "Append synthetic traffic entries to the log viewer",
		Schedule:    Every(interval),
		Enabled:     true,
		Func: func(ctx context.Context) error {
			if registry.TickLogs == nil {
				return fmt.Errorf("log tick function not configured")
			}
			registry.TickLogs()
			return nil
		},
	}
}

// NewOneShotTask creates a task that runs fn once, delay after now.
func NewOneShotTask(id, name string, now time.Time, delay time.Duration, fn func()) *Task {
	return &Task{
		ID:       id,
		Name:     name,
		Schedule: After(now, delay),
		Enabled:  true,
		Func: func(ctx context.Context) error {
			fn()
			return nil
		},
	}
}
