package brand

import (
	"path/filepath"
	"testing"
)

func TestGet(t *testing.T) {
	b := Get()
	if b.Name == "" || Name == "" {
		t.Error("Brand name should not be empty")
	}
	if LowerName != "iwaf" {
		t.Errorf("LowerName = %q, expected iwaf", LowerName)
	}
	if Version == "" {
		t.Error("Global Version should be initialized (to dev default)")
	}
}

func TestUserAgent(t *testing.T) {
	if ua := UserAgent("1.0.0"); ua != Name+"/1.0.0" {
		t.Errorf("UserAgent = %q", ua)
	}
	if ua := UserAgent(""); ua != Name+"/dev" {
		t.Errorf("UserAgent default = %q", ua)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(ConfigEnvPrefix+"_CONFIG", "")
	t.Setenv(ConfigEnvPrefix+"_CONFIG_DIR", "")

	if got, want := GetConfigPath(), filepath.Join(DefaultConfigDir, ConfigFileName); got != want {
		t.Errorf("default config path = %s, expected %s", got, want)
	}

	t.Setenv(ConfigEnvPrefix+"_CONFIG_DIR", "/tmp/iwaf")
	if got := GetConfigPath(); got != "/tmp/iwaf/"+ConfigFileName {
		t.Errorf("config dir override = %s", got)
	}

	t.Setenv(ConfigEnvPrefix+"_CONFIG", "/opt/waf.hcl")
	if got := GetConfigPath(); got != "/opt/waf.hcl" {
		t.Errorf("config path override = %s", got)
	}
}

func TestGetLogDir(t *testing.T) {
	t.Setenv(ConfigEnvPrefix+"_LOG_DIR", "")
	if GetLogDir() != DefaultLogDir {
		t.Errorf("expected default log dir %s, got %s", DefaultLogDir, GetLogDir())
	}
	t.Setenv(ConfigEnvPrefix+"_LOG_DIR", "/tmp/logs")
	if GetLogDir() != "/tmp/logs" {
		t.Errorf("expected override, got %s", GetLogDir())
	}
}
