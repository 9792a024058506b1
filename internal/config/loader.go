package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclFile is the on-disk HCL schema. Every field is optional; anything not
// set keeps its Default value.
type hclFile struct {
	SchemaVersion *string   `hcl:"schema_version,optional"`
	Enabled       *bool     `hcl:"enabled,optional"`
	IPWhitelist   *[]string `hcl:"ip_whitelist,optional"`
	IPBlacklist   *[]string `hcl:"ip_blacklist,optional"`
	LogLevel      *string   `hcl:"log_level,optional"`
	Action        *string   `hcl:"action,optional"`

	RateLimit     *hclRateLimit `hcl:"rate_limit,block"`
	SQLInjection  *hclToggle    `hcl:"sql_injection,block"`
	XSSProtection *hclToggle    `hcl:"xss_protection,block"`
	PathTraversal *hclToggle    `hcl:"path_traversal,block"`
	UserAgent     *hclToggle    `hcl:"user_agent,block"`
}

type hclRateLimit struct {
	Enabled           *bool `hcl:"enabled,optional"`
	RequestsPerMinute *int  `hcl:"requests_per_minute,optional"`
	Burst             *int  `hcl:"burst,optional"`
}

type hclToggle struct {
	Enabled *bool `hcl:"enabled,optional"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (t *hclToggle) apply(dst *Toggle) {
	if t != nil {
		setIf(&dst.Enabled, t.Enabled)
	}
}

func (f *hclFile) apply(cfg *Config) {
	setIf(&cfg.SchemaVersion, f.SchemaVersion)
	setIf(&cfg.Enabled, f.Enabled)
	setIf(&cfg.IPWhitelist, f.IPWhitelist)
	setIf(&cfg.IPBlacklist, f.IPBlacklist)
	setIf(&cfg.LogLevel, f.LogLevel)
	setIf(&cfg.Action, f.Action)
	if f.RateLimit != nil {
		setIf(&cfg.RateLimit.Enabled, f.RateLimit.Enabled)
		setIf(&cfg.RateLimit.RequestsPerMinute, f.RateLimit.RequestsPerMinute)
		setIf(&cfg.RateLimit.Burst, f.RateLimit.Burst)
	}
	f.SQLInjection.apply(&cfg.SQLInjection)
	f.XSSProtection.apply(&cfg.XSSProtection)
	f.PathTraversal.apply(&cfg.PathTraversal)
	f.UserAgent.apply(&cfg.UserAgent)
}

// LoadFile loads a config file (HCL or JSON) on top of Default and validates
// the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg *Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".hcl":
		cfg, err = LoadHCL(data, path)
	case ".json":
		cfg, err = LoadJSON(data)
	default:
		// Try HCL first, fall back to JSON
		cfg, err = LoadHCL(data, path)
		if err != nil {
			cfg, err = LoadJSON(data)
		}
	}
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("invalid config %s: %w", path, errs)
	}
	return cfg, nil
}

// LoadHCL decodes HCL bytes on top of Default.
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var f hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}

	cfg := Default()
	f.apply(cfg)
	cfg.Normalize()
	return cfg, nil
}

// LoadJSON decodes JSON bytes on top of Default.
func LoadJSON(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// SaveFile saves config to a file (format determined by extension).
func SaveFile(cfg *Config, path string) error {
	format := FormatHCL
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = FormatJSON
	} else if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		format = FormatYAML
	}

	data, err := Export(cfg, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
