package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/config"
)

var checkVerbose bool

var checkCmd = &cobra.Command{
	Use:   "check <config-file>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCheck(cmd.OutOrStdout(), args[0], checkVerbose)
	},
}

func init() {
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Print the effective settings")
	rootCmd.AddCommand(checkCmd)
}

// RunCheck validates the configuration file syntax and semantics.
func RunCheck(w io.Writer, configFile string, verbose bool) error {
	if len(configFile) == 0 {
		return fmt.Errorf("usage: %s check [-v] <config-file>\nExample: %s check -v /etc/iwaf/iwaf.hcl", brand.BinaryName, brand.BinaryName)
	}

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	Printer.Fprintf(w, "Configuration valid!\n")
	Printer.Fprintf(w, "Schema Version: %s\n", cfg.SchemaVersion)
	Printer.Fprintf(w, "Whitelist: %d\n", len(cfg.IPWhitelist))
	Printer.Fprintf(w, "Blacklist: %d\n", len(cfg.IPBlacklist))

	if verbose {
		Printer.Fprintln(w)
		printSummary(w, cfg)
	}
	return nil
}

func printSummary(out io.Writer, cfg *config.Config) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}

	Printer.Fprintln(w, "SETTING\tVALUE")
	Printer.Fprintf(w, "enabled\t%s\n", onOff(cfg.Enabled))
	Printer.Fprintf(w, "action\t%s\n", cfg.Action)
	Printer.Fprintf(w, "log_level\t%s\n", cfg.LogLevel)
	Printer.Fprintf(w, "rate_limit\t%s (%d/min, burst %d)\n", onOff(cfg.RateLimit.Enabled), cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	Printer.Fprintf(w, "sql_injection\t%s\n", onOff(cfg.SQLInjection.Enabled))
	Printer.Fprintf(w, "xss_protection\t%s\n", onOff(cfg.XSSProtection.Enabled))
	Printer.Fprintf(w, "path_traversal\t%s\n", onOff(cfg.PathTraversal.Enabled))
	Printer.Fprintf(w, "user_agent\t%s\n", onOff(cfg.UserAgent.Enabled))
	Printer.Fprintln(w)
	w.Flush()

	Printer.Fprintln(w, "LIST\tENTRIES")
	Printer.Fprintf(w, "whitelist\t%s\n", joinOrDash(cfg.IPWhitelist))
	Printer.Fprintf(w, "blacklist\t%s\n", joinOrDash(cfg.IPBlacklist))
	w.Flush()
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}
