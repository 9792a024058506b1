package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCheck_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "valid.hcl")

	validConfig := `
ip_whitelist = ["10.0.0.1"]

rate_limit {
  requests_per_minute = 60
  burst               = 10
}
`
	require.NoError(t, os.WriteFile(configPath, []byte(validConfig), 0644))

	var out bytes.Buffer
	require.NoError(t, RunCheck(&out, configPath, true))
	assert.Contains(t, out.String(), "Configuration valid!")
	assert.Contains(t, out.String(), "Whitelist: 1")
	assert.Contains(t, out.String(), "(60/min, burst 10)")
	assert.Contains(t, out.String(), "10.0.0.1")
}

func TestRunCheck_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.hcl")

	invalidConfig := `
rate_limit {
    # Missing closing brace
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidConfig), 0644))

	var out bytes.Buffer
	assert.Error(t, RunCheck(&out, configPath, false))
}

func TestRunCheck_InvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(configPath, []byte(`ip_blacklist = ["999.1.1.1"]`), 0644))

	var out bytes.Buffer
	err := RunCheck(&out, configPath, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration invalid")
}

func TestRunCheck_MissingArgument(t *testing.T) {
	assert.Error(t, RunCheck(&bytes.Buffer{}, "", false))
}
