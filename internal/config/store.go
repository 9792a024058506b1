package config

import (
	"errors"
	"fmt"
	"sync"

	"grimm.is/iwaf/internal/validation"
)

// ErrInvalid is wrapped by every commit that rejects its input.
var ErrInvalid = errors.New("invalid configuration value")

// RateLimitForm is the rate-limit form as submitted: numbers arrive as text.
type RateLimitForm struct {
	Enabled           bool   `json:"enabled" tui:"title=Rate Limiting"`
	RequestsPerMinute string `json:"requests_per_minute" tui:"title=Requests per Minute;validate=number"`
	Burst             string `json:"burst" tui:"title=Burst;validate=number"`
}

// SystemForm is the system settings form.
type SystemForm struct {
	LogLevel string `json:"log_level" tui:"title=Log Level;options=debug|info|warn|error"`
	Action   string `json:"action" tui:"title=Action;options=Block:block|Log only:log_only"`
}

// Store holds the committed configuration and the security form's pending
// defaults. The IP lists are owned elsewhere; the lists in the held record
// are only the initial seed.
type Store struct {
	mu      sync.RWMutex
	cfg     *Config
	pending *SecurityToggles
}

// NewStore creates a store holding a copy of cfg (Default when nil).
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: cfg.Clone()}
}

// Snapshot returns a deep copy of the committed configuration.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// CommitSecurityToggles overwrites the four protection switches and clears
// any pending reset.
func (s *Store) CommitSecurityToggles(t SecurityToggles) *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SetToggles(t)
	s.pending = nil
	return s.cfg.Clone()
}

// ResetSecurityToggles puts every toggle back on in the pending form
// defaults. The committed configuration is not touched.
func (s *Store) ResetSecurityToggles() SecurityToggles {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := AllOn()
	s.pending = &t
	return t
}

// PendingSecurityToggles returns the form defaults set by the last reset,
// or nil when no reset is pending.
func (s *Store) PendingSecurityToggles() *SecurityToggles {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return nil
	}
	t := *s.pending
	return &t
}

// CommitRateLimit parses and applies the rate-limit form. Non-numeric or
// negative input is rejected and nothing is written.
func (s *Store) CommitRateLimit(form RateLimitForm) (*Config, error) {
	rpm, err := validation.ParseNonNegativeInt("requests_per_minute", form.RequestsPerMinute)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	burst, err := validation.ParseNonNegativeInt("burst", form.Burst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.RateLimit = RateLimitConfig{
		Enabled:           form.Enabled,
		RequestsPerMinute: rpm,
		Burst:             burst,
	}
	return s.cfg.Clone(), nil
}

// CommitSystem validates and applies the system form.
func (s *Store) CommitSystem(form SystemForm) (*Config, error) {
	level, err := NormalizeLogLevel(form.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	action, err := NormalizeAction(form.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.LogLevel = level
	s.cfg.Action = action
	return s.cfg.Clone(), nil
}

// SetEnabled turns the WAF on or off.
func (s *Store) SetEnabled(enabled bool) *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Enabled = enabled
	return s.cfg.Clone()
}

// Replace swaps in a whole configuration, e.g. after the file changed on
// disk. The candidate must validate.
func (s *Store) Replace(cfg *Config) error {
	if errs := cfg.Validate(); errs.HasErrors() {
		return fmt.Errorf("%w: %v", ErrInvalid, errs)
	}
	next := cfg.Clone()
	next.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = next
	s.pending = nil
	return nil
}
