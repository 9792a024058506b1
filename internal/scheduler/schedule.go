package scheduler

import (
	"time"
)

// IntervalSchedule runs a task at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an interval schedule.
func Every(d time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: d}
}

// Next returns the next run time.
func (s *IntervalSchedule) Next(after time.Time) time.Time {
	if s.Interval <= 0 {
		return time.Time{}
	}
	return after.Add(s.Interval)
}

// OnceSchedule runs a task a single time.
type OnceSchedule struct {
	At time.Time
}

// At creates a schedule that fires once at t.
func At(t time.Time) *OnceSchedule {
	return &OnceSchedule{At: t}
}

// After creates a schedule that fires once, d after now.
func After(now time.Time, d time.Duration) *OnceSchedule {
	return At(now.Add(d))
}

// Next returns At while it is still ahead of after, and the zero time once
// the task has fired.
func (s *OnceSchedule) Next(after time.Time) time.Time {
	if after.Before(s.At) {
		return s.At
	}
	return time.Time{}
}
