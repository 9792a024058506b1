package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/config"
)

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Show the protection switches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newClient().GetConfig()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		t := cfg.Toggles()
		for _, name := range toggleNames {
			Printer.Fprintf(w, "%s\t%t\n", name, *toggleField(&t, name))
		}
		return w.Flush()
	},
}

var securitySetCmd = &cobra.Command{
	Use:     "set <name>=<on|off>...",
	Short:   "Change protection switches",
	Example: "  iwaf security set xss_protection=off user_agent=on",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl := newClient()
		cfg, err := cl.GetConfig()
		if err != nil {
			return err
		}
		t := cfg.Toggles()
		if err := applyToggleArgs(&t, args); err != nil {
			return err
		}
		out, err := cl.CommitSecurityToggles(t)
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

func init() {
	securityCmd.AddCommand(securitySetCmd)
	rootCmd.AddCommand(securityCmd)
}

var toggleNames = []string{"sql_injection", "xss_protection", "path_traversal", "user_agent"}

func toggleField(t *config.SecurityToggles, name string) *bool {
	switch name {
	case "sql_injection":
		return &t.SQLInjection
	case "xss_protection":
		return &t.XSSProtection
	case "path_traversal":
		return &t.PathTraversal
	case "user_agent":
		return &t.UserAgent
	}
	return nil
}

// applyToggleArgs sets t from name=value arguments. Values are on/off or
// anything strconv.ParseBool accepts.
func applyToggleArgs(t *config.SecurityToggles, args []string) error {
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected name=on|off, got %q", arg)
		}
		field := toggleField(t, name)
		if field == nil {
			return fmt.Errorf("unknown protection %q (want one of %s)", name, strings.Join(toggleNames, ", "))
		}
		switch strings.ToLower(value) {
		case "on":
			*field = true
		case "off":
			*field = false
		default:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %q", name, value)
			}
			*field = b
		}
	}
	return nil
}
