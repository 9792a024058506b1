// Package ratelimit throttles admin API clients. It protects the console
// itself; it has nothing to do with the WAF's configured rate limit.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"grimm.is/iwaf/internal/clock"
)

// Config holds the per-key limits.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	EntryTTL          time.Duration // idle keys are dropped after this long
}

// DefaultConfig returns the admin API defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 20,
		Burst:             40,
		EntryTTL:          10 * time.Minute,
	}
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter manages rate limiting for multiple keys
type Limiter struct {
	limiters map[string]*entry
	mu       sync.Mutex
	config   Config
	clock    clock.Clock

	stop chan struct{}
	done chan struct{}
}

// NewLimiter creates a new rate limiter. c may be nil.
func NewLimiter(cfg Config, c clock.Clock) *Limiter {
	return &Limiter{
		limiters: make(map[string]*entry),
		config:   cfg,
		clock:    clock.Or(c),
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	e, exists := l.limiters[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)}
		l.limiters[key] = e
	}
	e.lastAccess = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Reset clears rate limit for a specific key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// CleanupExpired removes keys idle for longer than EntryTTL.
func (l *Limiter) CleanupExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-l.config.EntryTTL)
	for key, e := range l.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

// StartCleanup starts a background goroutine to clean up idle keys.
// Stop ends it.
func (l *Limiter) StartCleanup(interval time.Duration) {
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(l.done)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.CleanupExpired()
			}
		}
	}()
}

// Stop ends the cleanup goroutine started by StartCleanup.
func (l *Limiter) Stop() {
	if l.stop == nil {
		return
	}
	close(l.stop)
	<-l.done
	l.stop = nil
}

// Middleware rejects requests over the limit with 429. key extracts the
// client identity; onReject, if set, is called for each rejection.
func (l *Limiter) Middleware(key func(*http.Request) string, onReject func(*http.Request)) func(http.Handler) http.Handler {
	retryAfter := "1"
	if l.config.RequestsPerSecond > 0 && l.config.RequestsPerSecond < 1 {
		retryAfter = strconv.Itoa(int(1/l.config.RequestsPerSecond + 0.5))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(key(r)) {
				if onReject != nil {
					onReject(r)
				}
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
