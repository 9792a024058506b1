package config

import (
	"fmt"
	"strings"

	"grimm.is/iwaf/internal/validation"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks every IP, enum and numeric field. Duplicate list entries
// are reported too, since the lists are sets.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	checkList := func(field string, ips []string) {
		seen := make(map[string]bool, len(ips))
		for i, ip := range ips {
			name := fmt.Sprintf("%s[%d]", field, i)
			if err := validation.ValidateIP(ip); err != nil {
				errs = append(errs, ValidationError{Field: name, Message: err.Error()})
				continue
			}
			if seen[ip] {
				errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("duplicate entry %s", ip)})
			}
			seen[ip] = true
		}
	}
	checkList("ip_whitelist", c.IPWhitelist)
	checkList("ip_blacklist", c.IPBlacklist)

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "rate_limit.requests_per_minute", Message: "cannot be negative"})
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, ValidationError{Field: "rate_limit.burst", Message: "cannot be negative"})
	}
	if _, err := NormalizeLogLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{Field: "log_level", Message: err.Error()})
	}
	if _, err := NormalizeAction(c.Action); err != nil {
		errs = append(errs, ValidationError{Field: "action", Message: err.Error()})
	}

	return errs
}

// Normalize rewrites legacy enum spellings in place. Invalid values are left
// for Validate to report.
func (c *Config) Normalize() {
	if a, err := NormalizeAction(c.Action); err == nil {
		c.Action = a
	}
	if l, err := NormalizeLogLevel(c.LogLevel); err == nil {
		c.LogLevel = l
	}
	for i := range c.IPWhitelist {
		c.IPWhitelist[i] = strings.TrimSpace(c.IPWhitelist[i])
	}
	for i := range c.IPBlacklist {
		c.IPBlacklist[i] = strings.TrimSpace(c.IPBlacklist[i])
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
}
