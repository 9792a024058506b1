// Package brand provides centralized branding constants.
//
// The identity is loaded from brand.json at compile time via go:embed so that
// scripts and docs can read the same file.
package brand

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all branding information
type Brand struct {
	Name             string `json:"name"`
	LowerName        string `json:"lowerName"`
	Vendor           string `json:"vendor"`
	Website          string `json:"website"`
	Description      string `json:"description"`
	Tagline          string `json:"tagline"`
	ConfigEnvPrefix  string `json:"configEnvPrefix"`
	DefaultConfigDir string `json:"defaultConfigDir"`
	DefaultLogDir    string `json:"defaultLogDir"`
	BinaryName       string `json:"binaryName"`
	ConfigFileName   string `json:"configFileName"`
	DefaultAPIAddr   string `json:"defaultAPIAddr"`
	DefaultSSHAddr   string `json:"defaultSSHAddr"`
	License          string `json:"license"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Description = b.Description
	ConfigEnvPrefix = b.ConfigEnvPrefix
	DefaultConfigDir = b.DefaultConfigDir
	DefaultLogDir = b.DefaultLogDir
	BinaryName = b.BinaryName
	ConfigFileName = b.ConfigFileName
	DefaultAPIAddr = b.DefaultAPIAddr
}

var (
	Name             string
	LowerName        string
	Description      string
	ConfigEnvPrefix  string
	DefaultConfigDir string
	DefaultLogDir    string
	BinaryName       string
	ConfigFileName   string
	DefaultAPIAddr   string

	// Version is set at build time via -ldflags
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Get returns the full Brand struct
func Get() Brand {
	return b
}

// UserAgent returns a User-Agent string for HTTP requests
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return Name + "/" + version
}

// GetConfigPath returns the default config file path.
// Priority: IWAF_CONFIG > IWAF_CONFIG_DIR/iwaf.hcl > DefaultConfigDir/iwaf.hcl
func GetConfigPath() string {
	if p := os.Getenv(ConfigEnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	dir := DefaultConfigDir
	if d := os.Getenv(ConfigEnvPrefix + "_CONFIG_DIR"); d != "" {
		dir = d
	}
	return filepath.Join(dir, ConfigFileName)
}

// GetLogDir returns the log directory, checking env vars first.
// Priority: IWAF_LOG_DIR > DefaultLogDir
func GetLogDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_LOG_DIR"); dir != "" {
		return dir
	}
	return DefaultLogDir
}
