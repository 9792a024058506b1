// Package config owns the WAF configuration record: its schema, HCL/JSON
// loading, HCL/JSON/YAML export, validation and the commit semantics of the
// console's settings forms.
package config

import (
	"fmt"
	"slices"
	"strings"

	"grimm.is/iwaf/internal/validation"
)

// CurrentSchemaVersion is the schema version written on export.
const CurrentSchemaVersion = "1.0"

// Log levels accepted by the system form.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// LogLevels lists the accepted log levels.
var LogLevels = []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// Actions taken on a matched request.
const (
	ActionBlock   = "block"
	ActionLogOnly = "log_only"
)

// Actions lists the canonical action values.
var Actions = []string{ActionBlock, ActionLogOnly}

// NormalizeAction maps an action, including the legacy "log-only" and
// "monitor" spellings, to its canonical value.
func NormalizeAction(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ActionBlock:
		return ActionBlock, nil
	case ActionLogOnly, "log-only", "monitor":
		return ActionLogOnly, nil
	}
	return "", fmt.Errorf("invalid action %q (must be one of: %s)", s, strings.Join(Actions, ", "))
}

// NormalizeLogLevel validates a log level.
func NormalizeLogLevel(s string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(s))
	if err := validation.ValidateAllowlist(l, LogLevels); err != nil {
		return "", fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Config is the complete WAF configuration.
type Config struct {
	SchemaVersion string `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`

	Enabled     bool     `json:"enabled" yaml:"enabled"`
	IPWhitelist []string `json:"ip_whitelist" yaml:"ip_whitelist"`
	IPBlacklist []string `json:"ip_blacklist" yaml:"ip_blacklist"`

	RateLimit     RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	SQLInjection  Toggle          `json:"sql_injection" yaml:"sql_injection"`
	XSSProtection Toggle          `json:"xss_protection" yaml:"xss_protection"`
	PathTraversal Toggle          `json:"path_traversal" yaml:"path_traversal"`
	UserAgent     Toggle          `json:"user_agent" yaml:"user_agent"`

	LogLevel string `json:"log_level" yaml:"log_level"`
	Action   string `json:"action" yaml:"action"`
}

// RateLimitConfig configures request rate limiting.
type RateLimitConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int  `json:"burst" yaml:"burst"`
}

// Toggle is a protection feature switch.
type Toggle struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// SecurityToggles is the security form: the four protection switches.
type SecurityToggles struct {
	SQLInjection  bool `json:"sql_injection" tui:"title=SQL Injection Protection"`
	XSSProtection bool `json:"xss_protection" tui:"title=XSS Protection"`
	PathTraversal bool `json:"path_traversal" tui:"title=Path Traversal Protection"`
	UserAgent     bool `json:"user_agent" tui:"title=User-Agent Filtering"`
}

// AllOn returns the toggles with every protection enabled.
func AllOn() SecurityToggles {
	return SecurityToggles{SQLInjection: true, XSSProtection: true, PathTraversal: true, UserAgent: true}
}

// Default returns the seed configuration.
func Default() *Config {
	return &Config{
		SchemaVersion: CurrentSchemaVersion,
		Enabled:       true,
		IPWhitelist:   []string{"127.0.0.1", "::1"},
		IPBlacklist:   []string{"192.168.1.100"},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			Burst:             20,
		},
		SQLInjection:  Toggle{Enabled: true},
		XSSProtection: Toggle{Enabled: true},
		PathTraversal: Toggle{Enabled: true},
		UserAgent:     Toggle{Enabled: true},
		LogLevel:      LogLevelInfo,
		Action:        ActionBlock,
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.IPWhitelist = slices.Clone(c.IPWhitelist)
	clone.IPBlacklist = slices.Clone(c.IPBlacklist)
	return &clone
}

// Toggles returns the security form view of c.
func (c *Config) Toggles() SecurityToggles {
	return SecurityToggles{
		SQLInjection:  c.SQLInjection.Enabled,
		XSSProtection: c.XSSProtection.Enabled,
		PathTraversal: c.PathTraversal.Enabled,
		UserAgent:     c.UserAgent.Enabled,
	}
}

// SetToggles overwrites the four protection switches.
func (c *Config) SetToggles(t SecurityToggles) {
	c.SQLInjection.Enabled = t.SQLInjection
	c.XSSProtection.Enabled = t.XSSProtection
	c.PathTraversal.Enabled = t.PathTraversal
	c.UserAgent.Enabled = t.UserAgent
}
