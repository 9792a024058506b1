// Package scheduler runs the console's periodic and one-shot jobs.
//
// In production a ticker drives the loop. Tests skip Start and call RunDue
// with a mock clock so execution is deterministic.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/logging"
)

// ErrTaskNotFound is returned for an unknown task ID.
var ErrTaskNotFound = errors.New("task not found")

// TaskFunc is a function that performs a scheduled task.
// It receives a context that will be cancelled if the scheduler stops.
type TaskFunc func(ctx context.Context) error

// Schedule defines when a task should run.
type Schedule interface {
	// Next returns the next time the task should run after the given time.
	// A zero time means the task is finished and will be removed.
	Next(after time.Time) time.Time
}

// Task represents a scheduled task.
type Task struct {
	ID          string
	Name        string
	Description string
	Schedule    Schedule
	Func        TaskFunc
	Enabled     bool
	RunOnStart  bool // Run immediately when scheduler starts
	Timeout     time.Duration
}

// TaskStatus represents the current status of a task.
type TaskStatus struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Enabled      bool          `json:"enabled"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
	NextRun      time.Time     `json:"next_run,omitempty"`
	RunCount     int64         `json:"run_count"`
	ErrorCount   int64         `json:"error_count"`
}

// Scheduler manages and runs scheduled tasks.
type Scheduler struct {
	tasks   map[string]*taskEntry
	mu      sync.RWMutex
	runMu   sync.Mutex // one task at a time
	logger  *slog.Logger
	clock   clock.Clock
	tick    time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

type taskEntry struct {
	task    *Task
	status  TaskStatus
	nextRun time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source used for scheduling.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = clock.Or(c) }
}

// WithTick sets how often the background loop checks for due tasks.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// New creates a new scheduler.
func New(logger *logging.Logger, opts ...Option) *Scheduler {
	var l *slog.Logger
	if logger == nil {
		l = slog.Default()
	} else {
		l = logger.Logger
	}

	s := &Scheduler{
		tasks:  make(map[string]*taskEntry),
		logger: l.With("component", "scheduler"),
		clock:  clock.Default(),
		tick:   time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask adds a task to the scheduler.
func (s *Scheduler) AddTask(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if task.Schedule == nil {
		return fmt.Errorf("task schedule is required")
	}
	if task.Func == nil {
		return fmt.Errorf("task function is required")
	}

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	entry := &taskEntry{
		task: task,
		status: TaskStatus{
			ID:          task.ID,
			Name:        task.Name,
			Description: task.Description,
			Enabled:     task.Enabled,
		},
	}

	if task.Enabled {
		entry.nextRun = task.Schedule.Next(s.clock.Now())
		entry.status.NextRun = entry.nextRun
	}

	s.tasks[task.ID] = entry
	s.logger.Debug("task added", "id", task.ID, "name", task.Name)

	return nil
}

// RemoveTask removes a task from the scheduler.
func (s *Scheduler) RemoveTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	delete(s.tasks, id)
	s.logger.Debug("task removed", "id", id)
	return nil
}

// EnableTask enables or disables a task.
func (s *Scheduler) EnableTask(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.tasks[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	entry.task.Enabled = enabled
	entry.status.Enabled = enabled

	if enabled {
		entry.nextRun = entry.task.Schedule.Next(s.clock.Now())
	} else {
		entry.nextRun = time.Time{}
	}
	entry.status.NextRun = entry.nextRun

	return nil
}

// RunTask runs a task immediately, regardless of schedule.
func (s *Scheduler) RunTask(id string) error {
	s.mu.RLock()
	entry, exists := s.tasks[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	s.executeTask(s.baseContext(), entry, false)
	return nil
}

// GetStatus returns the status of all tasks.
func (s *Scheduler) GetStatus() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, entry := range s.tasks {
		statuses = append(statuses, entry.status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})

	return statuses
}

// GetTaskStatus returns the status of a specific task.
func (s *Scheduler) GetTaskStatus(id string) (TaskStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.tasks[id]
	if !exists {
		return TaskStatus{}, false
	}
	return entry.status, true
}

// Start starts the background loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	ctx := s.ctx

	var onStart []*taskEntry
	for _, entry := range s.tasks {
		if entry.task.Enabled && entry.task.RunOnStart {
			onStart = append(onStart, entry)
		}
	}
	s.mu.Unlock()

	s.logger.Info("scheduler started", "tasks", len(s.tasks))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, entry := range onStart {
			s.executeTask(ctx, entry, false)
		}
		s.run(ctx)
	}()
}

// Stop stops the scheduler and waits for the running task to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// IsRunning returns whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx != nil && s.running {
		return s.ctx
	}
	return context.Background()
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx, s.clock.Now())
		}
	}
}

// RunDue synchronously runs every task due at or before now, in due-time
// order (ties broken by ID). A task that fell behind by several periods runs
// once per missed period. It returns the number of executions.
func (s *Scheduler) RunDue(now time.Time) int {
	return s.runDue(s.baseContext(), now)
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) int {
	n := 0
	for ctx.Err() == nil {
		entry := s.nextDue(now)
		if entry == nil {
			break
		}
		s.executeTask(ctx, entry, true)
		n++
	}
	return n
}

// nextDue returns the enabled task with the earliest nextRun not after now.
func (s *Scheduler) nextDue(now time.Time) *taskEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *taskEntry
	for _, entry := range s.tasks {
		if !entry.task.Enabled || entry.nextRun.IsZero() || entry.nextRun.After(now) {
			continue
		}
		if best == nil || entry.nextRun.Before(best.nextRun) ||
			(entry.nextRun.Equal(best.nextRun) && entry.task.ID < best.task.ID) {
			best = entry
		}
	}
	return best
}

// executeTask runs a single task. When scheduled is true the next run is
// computed from the slot that just fired, otherwise from the current time.
func (s *Scheduler) executeTask(parent context.Context, entry *taskEntry, scheduled bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	task := entry.task
	s.logger.Debug("executing task", "id", task.ID, "name", task.Name)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if task.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, task.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	s.mu.RLock()
	slot := entry.nextRun
	s.mu.RUnlock()

	start := s.clock.Now()
	err := task.Func(ctx)
	duration := s.clock.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry.status.LastRun = start
	entry.status.LastDuration = duration
	entry.status.RunCount++
	if err != nil {
		entry.status.LastError = err.Error()
		entry.status.ErrorCount++
		s.logger.Warn("task failed", "id", task.ID, "error", err, "duration", duration)
	} else {
		entry.status.LastError = ""
		s.logger.Debug("task completed", "id", task.ID, "duration", duration)
	}

	if !task.Enabled {
		return
	}
	base := s.clock.Now()
	if scheduled && !slot.IsZero() {
		base = slot
	}
	entry.nextRun = task.Schedule.Next(base)
	entry.status.NextRun = entry.nextRun

	if entry.nextRun.IsZero() {
		if cur, ok := s.tasks[task.ID]; ok && cur == entry {
			delete(s.tasks, task.ID)
			s.logger.Debug("task finished", "id", task.ID)
		}
	}
}
