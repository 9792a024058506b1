package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iwaf.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "info"`), 0644))

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, nil, func(cfg *Config) { changes <- cfg })
	require.NoError(t, err)
	w.SetDebounceDelay(20 * time.Millisecond)
	w.Start()
	defer w.Close()

	// Invalid edits are skipped.
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "shout"`), 0644))
	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload with %q", cfg.LogLevel)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(`log_level = "error"`), 0644))
	select {
	case cfg := <-changes:
		assert.Equal(t, LogLevelError, cfg.LogLevel)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iwaf.hcl")
	require.NoError(t, os.WriteFile(path, []byte(``), 0644))

	changes := make(chan *Config, 1)
	w, err := NewWatcher(path, nil, func(cfg *Config) { changes <- cfg })
	require.NoError(t, err)
	w.SetDebounceDelay(10 * time.Millisecond)
	w.Start()
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.hcl"), []byte(`enabled = false`), 0644))
	select {
	case <-changes:
		t.Fatal("reload triggered by unrelated file")
	case <-time.After(150 * time.Millisecond):
	}
}
