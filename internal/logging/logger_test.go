package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:  LevelDebug,
		Output: &buf,
		JSON:   true,
	})

	t.Run("Levels", func(t *testing.T) {
		for _, msg := range []string{"debug msg", "info msg", "warn msg", "error msg"} {
			buf.Reset()
			switch msg {
			case "debug msg":
				logger.Debug(msg)
			case "info msg":
				logger.Info(msg)
			case "warn msg":
				logger.Warn(msg)
			default:
				logger.Error(msg)
			}
			if !strings.Contains(buf.String(), msg) {
				t.Errorf("%q not logged", msg)
			}
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		defer logger.SetLevel(LevelDebug)
		if logger.GetLevel() != LevelError {
			t.Error("SetLevel failed")
		}

		buf.Reset()
		logger.Info("should not appear")
		if buf.Len() > 0 {
			t.Error("Logged info message when level was Error")
		}
	})

	t.Run("WithComponent", func(t *testing.T) {
		buf.Reset()
		logger.WithComponent("iplist").Info("msg")
		if !strings.Contains(buf.String(), "iplist") {
			t.Error("WithComponent missing component field")
		}
	})
}

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.WithComponent("API").Info("request served", "path", "/api/stats", "note", "two words")

	line := buf.String()
	for _, want := range []string{"[info]", "api: request served", "path=/api/stats", `note="two words"`} {
		if !strings.Contains(line, want) {
			t.Errorf("console line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should be promoted to the tag, got %q", line)
	}
}

func TestFileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "iwaf.log")
	logger := New(Config{
		Level:  LevelInfo,
		Output: &buf,
		File:   &FileConfig{Path: path, MaxSizeMB: 1},
	})

	logger.Info("rotated output")
	if !strings.Contains(buf.String(), "rotated output") {
		t.Error("primary output missing line")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	SetDefault(New(cfg))

	Info("info")
	Warn("warn")
	WithComponent("comp").Info("comp msg")

	if !strings.Contains(buf.String(), "comp: comp msg") {
		t.Errorf("default logger output missing component line: %q", buf.String())
	}
}
