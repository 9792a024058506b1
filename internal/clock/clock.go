// Package clock provides an injectable time source.
// Production code uses Real; tests construct a Mock and advance it by hand so
// periodic work (stats ticks, log ticks, notification expiry) is deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source consumed by the console, scheduler and emitter.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// Real reads the system clock.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t.
func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Mock is a manually driven clock.
type Mock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewMock creates a mock clock set to t.
func NewMock(t time.Time) *Mock {
	return &Mock{current: t}
}

// Now returns the mock time.
func (c *Mock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Since returns the duration between t and the mock time.
func (c *Mock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set moves the mock clock to t.
func (c *Mock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Advance moves the mock clock forward by d and returns the new time.
func (c *Mock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

var (
	defaultMu    sync.RWMutex
	defaultClock Clock = Real{}
)

// Default returns the process-wide clock used when none is injected.
func Default() Clock {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClock
}

// SetDefault replaces the process-wide clock. Passing nil restores Real.
func SetDefault(c Clock) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if c == nil {
		c = Real{}
	}
	defaultClock = c
}

// Now returns Default().Now().
func Now() time.Time {
	return Default().Now()
}

// Or returns c, or the default clock when c is nil.
func Or(c Clock) Clock {
	if c == nil {
		return Default()
	}
	return c
}
