package config

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v2"
)

// Export formats.
const (
	FormatHCL  = "hcl"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export renders cfg in the named format.
func Export(cfg *Config, format string) ([]byte, error) {
	switch format {
	case FormatHCL, "":
		return MarshalHCL(cfg), nil
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// MarshalHCL renders cfg as formatted HCL.
func MarshalHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	version := cfg.SchemaVersion
	if version == "" {
		version = CurrentSchemaVersion
	}
	body.SetAttributeValue("schema_version", cty.StringVal(version))
	body.SetAttributeValue("enabled", cty.BoolVal(cfg.Enabled))
	body.SetAttributeValue("log_level", cty.StringVal(cfg.LogLevel))
	body.SetAttributeValue("action", cty.StringVal(cfg.Action))
	body.AppendNewline()
	body.SetAttributeValue("ip_whitelist", toCtyStringList(cfg.IPWhitelist))
	body.SetAttributeValue("ip_blacklist", toCtyStringList(cfg.IPBlacklist))

	body.AppendNewline()
	rl := body.AppendNewBlock("rate_limit", nil).Body()
	rl.SetAttributeValue("enabled", cty.BoolVal(cfg.RateLimit.Enabled))
	rl.SetAttributeValue("requests_per_minute", cty.NumberIntVal(int64(cfg.RateLimit.RequestsPerMinute)))
	rl.SetAttributeValue("burst", cty.NumberIntVal(int64(cfg.RateLimit.Burst)))

	for _, t := range []struct {
		name   string
		toggle Toggle
	}{
		{"sql_injection", cfg.SQLInjection},
		{"xss_protection", cfg.XSSProtection},
		{"path_traversal", cfg.PathTraversal},
		{"user_agent", cfg.UserAgent},
	} {
		body.AppendNewline()
		b := body.AppendNewBlock(t.name, nil).Body()
		b.SetAttributeValue("enabled", cty.BoolVal(t.toggle.Enabled))
	}

	return hclwrite.Format(f.Bytes())
}

func toCtyStringList(strs []string) cty.Value {
	if len(strs) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(strs))
	for i, s := range strs {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
