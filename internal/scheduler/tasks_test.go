package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewStatsTask(t *testing.T) {
	calls := 0
	registry := &TaskRegistry{TickStats: func() { calls++ }}

	task := NewStatsTask(registry, StatsInterval)
	if err := task.Func(context.Background()); err != nil {
		t.Fatalf("Task execution failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if task.Schedule.(*IntervalSchedule).Interval != 30*time.Second {
		t.Error("unexpected interval")
	}
}

func TestNewLogTask_Unconfigured(t *testing.T) {
	task := NewLogTask(&TaskRegistry{}, LogsInterval)
	if err := task.Func(context.Background()); err == nil {
		t.Error("expected error for missing tick function")
	}
}

func TestNewOneShotTask(t *testing.T) {
	base := time.Date(2024, 9, 22, 10, 0, 0, 0, time.UTC)
	ran := false
	task := NewOneShotTask("once", "Once", base, 2*time.Second, func() { ran = true })

	if got := task.Schedule.Next(base); !got.Equal(base.Add(2 * time.Second)) {
		t.Errorf("unexpected first run %v", got)
	}
	if err := task.Func(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("function not called")
	}
}
