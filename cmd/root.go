// Package cmd provides the iwaf command line.
package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/client"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/logging"
)

var (
	// Global flags
	langFlag    string
	logLevel    string
	logFile     string
	jsonLogs    bool
	remoteURL   string
	fingerprint string
	apiTimeout  time.Duration

	// cliLang follows --lang, then LC_ALL/LANG.
	cliLang = i18n.EnvLanguage()
	// Printer localizes CLI output in cliLang.
	Printer = i18n.NewPrinter(cliLang)
)

var rootCmd = &cobra.Command{
	Use:   brand.BinaryName,
	Short: brand.Name + " - " + brand.Description,
	Long: brand.Name + ` is the administration console of a web application firewall.

It keeps the WAF configuration, the IP whitelist and blacklist, the
request log and the traffic statistics, and serves them over a JSON
API, a websocket feed, a terminal UI and SSH.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if langFlag != "" {
			cliLang = i18n.MatchLanguage(langFlag)
			Printer = i18n.NewPrinter(cliLang)
		}

		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		cfg := logging.DefaultConfig()
		cfg.Level = level
		cfg.JSON = jsonLogs
		if logFile != "" {
			cfg.File = &logging.FileConfig{Path: logFile, MaxSizeMB: 10, MaxBackups: 3, Compress: true}
		}
		logging.SetDefault(logging.New(cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&langFlag, "lang", "", "Output language (en, zh-Hans); default from LANG")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "Also write logs to this file, rotated by size")
	pf.BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")
	pf.StringVar(&remoteURL, "remote", "", "API base URL of a running console (default http://"+brand.DefaultAPIAddr+")")
	pf.StringVar(&fingerprint, "fingerprint", "", "Expected SHA-256 fingerprint of an HTTPS console's certificate")
	pf.DurationVar(&apiTimeout, "timeout", 30*time.Second, "API request timeout")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Main runs the CLI and exits non-zero on failure.
func Main() {
	if err := Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			Printer.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// apiURL is the console the client commands talk to.
func apiURL() string {
	if remoteURL != "" {
		return remoteURL
	}
	return "http://" + brand.DefaultAPIAddr
}

// newClient builds an API client speaking the CLI's language.
func newClient() *client.HTTPClient {
	return client.NewHTTPClient(apiURL(),
		client.WithTimeout(apiTimeout),
		client.WithLanguage(cliLang.String()),
		client.WithFingerprint(fingerprint),
	)
}
