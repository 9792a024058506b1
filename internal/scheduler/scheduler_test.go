package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"grimm.is/iwaf/internal/clock"
)

// futureSchedule returns time + 1 hour
type futureSchedule struct{}

func (s futureSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Hour)
}

var base = time.Date(2024, 9, 22, 10, 0, 0, 0, time.UTC)

func TestScheduler_CRUD(t *testing.T) {
	s := New(nil)

	task := &Task{
		ID:       "test-1",
		Name:     "Test Task",
		Enabled:  true,
		Schedule: futureSchedule{},
		Func: func(ctx context.Context) error {
			return nil
		},
	}

	if err := s.AddTask(task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	if _, exists := s.GetTaskStatus("test-1"); !exists {
		t.Error("Task not found after add")
	}

	if err := s.AddTask(task); err == nil {
		t.Error("Expected error adding duplicate task")
	}

	if err := s.EnableTask("test-1", false); err != nil {
		t.Errorf("Disable failed: %v", err)
	}
	stat, _ := s.GetTaskStatus("test-1")
	if stat.Enabled {
		t.Error("Task should be disabled")
	}

	if err := s.EnableTask("test-1", true); err != nil {
		t.Errorf("Enable failed: %v", err)
	}
	stat, _ = s.GetTaskStatus("test-1")
	if !stat.Enabled {
		t.Error("Task should be enabled")
	}

	if all := s.GetStatus(); len(all) != 1 {
		t.Errorf("Expected 1 task status, got %d", len(all))
	}

	if err := s.RemoveTask("test-1"); err != nil {
		t.Errorf("RemoveTask failed: %v", err)
	}
	if _, exists := s.GetTaskStatus("test-1"); exists {
		t.Error("Task should be gone after remove")
	}
	if err := s.RemoveTask("test-1"); err == nil {
		t.Error("Expected error removing missing task")
	}
}

func TestScheduler_AddTaskValidation(t *testing.T) {
	s := New(nil)
	fn := func(ctx context.Context) error { return nil }

	for name, task := range map[string]*Task{
		"no id":       {Schedule: Every(time.Second), Func: fn},
		"no schedule": {ID: "x", Func: fn},
		"no func":     {ID: "x", Schedule: Every(time.Second)},
	} {
		if err := s.AddTask(task); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestScheduler_RunDueDeterministic(t *testing.T) {
	mc := clock.NewMock(base)
	s := New(nil, WithClock(mc))

	var order []string
	record := func(id string) TaskFunc {
		return func(ctx context.Context) error {
			order = append(order, id)
			return nil
		}
	}
	s.AddTask(&Task{ID: "stats", Schedule: Every(30 * time.Second), Enabled: true, Func: record("stats")})
	s.AddTask(&Task{ID: "logs", Schedule: Every(15 * time.Second), Enabled: true, Func: record("logs")})

	if n := s.RunDue(mc.Advance(14 * time.Second)); n != 0 {
		t.Errorf("expected nothing due at 14s, ran %d", n)
	}

	// At 30s: logs@15, logs@30, stats@30 (tie broken by ID).
	if n := s.RunDue(mc.Advance(16 * time.Second)); n != 3 {
		t.Fatalf("expected 3 runs at 30s, got %d", n)
	}
	want := []string{"logs", "logs", "stats"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	stat, _ := s.GetTaskStatus("logs")
	if stat.RunCount != 2 {
		t.Errorf("logs run count = %d, want 2", stat.RunCount)
	}
	if !stat.NextRun.Equal(base.Add(45 * time.Second)) {
		t.Errorf("logs next run = %v", stat.NextRun)
	}
}

func TestScheduler_OneShotRemoved(t *testing.T) {
	mc := clock.NewMock(base)
	s := New(nil, WithClock(mc))

	runs := 0
	s.AddTask(NewOneShotTask("restart", "Restart", mc.Now(), 2*time.Second, func() { runs++ }))

	s.RunDue(mc.Advance(time.Second))
	if runs != 0 {
		t.Fatal("one-shot ran early")
	}
	s.RunDue(mc.Advance(time.Second))
	if runs != 1 {
		t.Fatalf("expected one run, got %d", runs)
	}
	if _, exists := s.GetTaskStatus("restart"); exists {
		t.Error("one-shot task should be removed after running")
	}
	s.RunDue(mc.Advance(time.Hour))
	if runs != 1 {
		t.Error("one-shot ran twice")
	}
}

func TestScheduler_TaskError(t *testing.T) {
	mc := clock.NewMock(base)
	s := New(nil, WithClock(mc))
	s.AddTask(&Task{
		ID: "fail", Schedule: Every(time.Second), Enabled: true,
		Func: func(ctx context.Context) error { return errors.New("boom") },
	})
	s.RunDue(mc.Advance(time.Second))

	stat, _ := s.GetTaskStatus("fail")
	if stat.ErrorCount != 1 || stat.LastError != "boom" {
		t.Errorf("unexpected status %+v", stat)
	}
}

func TestScheduler_Execution(t *testing.T) {
	s := New(nil)

	ran := make(chan struct{})
	task := &Task{
		ID:       "manual-run",
		Name:     "Manual Run",
		Enabled:  false, // Disabled, but run manually
		Schedule: futureSchedule{},
		Func: func(ctx context.Context) error {
			close(ran)
			return nil
		},
	}
	s.AddTask(task)

	if err := s.RunTask("manual-run"); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Error("Timeout waiting for manual task run")
	}

	if err := s.RunTask("missing"); err == nil {
		t.Error("expected error for missing task")
	}
}

func TestScheduler_RunOnStart(t *testing.T) {
	s := New(nil, WithTick(10*time.Millisecond))

	var mu sync.Mutex
	ran := false

	s.AddTask(&Task{
		ID:         "start-run",
		Name:       "Start Run",
		Enabled:    true,
		RunOnStart: true,
		Schedule:   futureSchedule{},
		Func: func(ctx context.Context) error {
			mu.Lock()
			ran = true
			mu.Unlock()
			return nil
		},
	})

	s.Start()
	if !s.IsRunning() {
		t.Error("Scheduler should be running")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := ran
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("Scheduler should be stopped")
	}

	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Error("Task with RunOnStart did not run on start")
	}
}
