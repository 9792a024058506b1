package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/i18n"
)

var restartYes bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running console's status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cl := newClient()
		st, err := cl.GetStatus()
		if err != nil {
			return fmt.Errorf("cannot reach %s: %w", apiURL(), err)
		}
		snap, err := cl.GetStats()
		if err != nil {
			return err
		}

		state := Printer.Sprintf(i18n.LabelRunning)
		if !st.Enabled {
			state = Printer.Sprintf(i18n.LabelStopped)
		}
		if st.Restarting {
			state = Printer.Sprintf(i18n.MsgRestarting)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		Printer.Fprintf(w, "%s\t%s (%s)\n", st.Name, state, st.Version)
		Printer.Fprintf(w, "%s\t%s\n", Printer.Sprintf(i18n.LabelUptime), st.Uptime)
		Printer.Fprintf(w, "%s\t%s\n", Printer.Sprintf(i18n.LabelThreatLevel), st.ThreatLevel)
		Printer.Fprintf(w, "%s\t%s\n", Printer.Sprintf(i18n.LabelTotalRequests), humanize.Comma(int64(snap.TotalRequests)))
		Printer.Fprintf(w, "%s\t%s\n", Printer.Sprintf(i18n.LabelBlockedRequests), humanize.Comma(int64(snap.BlockedRequests)))
		Printer.Fprintf(w, "%s\t%s\n", Printer.Sprintf(i18n.LabelSafeRequests), humanize.Comma(int64(snap.SafeRequests)))
		Printer.Fprintf(w, "%s\t%d\n", Printer.Sprintf(i18n.LabelWhitelist), st.Whitelist)
		Printer.Fprintf(w, "%s\t%d\n", Printer.Sprintf(i18n.LabelBlacklist), st.Blacklist)
		return w.Flush()
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn the WAF on",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newClient().SetEnabled(true)
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn the WAF off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newClient().SetEnabled(false)
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the WAF service (requires --yes)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newClient().Restart(restartYes)
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit <requests-per-minute> <burst>",
	Short: "Set the rate limit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cl := newClient()
		cfg, err := cl.GetConfig()
		if err != nil {
			return err
		}
		out, err := cl.CommitRateLimit(config.RateLimitForm{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerMinute: args[0],
			Burst:             args[1],
		})
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		Printer.Fprintf(cmd.OutOrStdout(), "%s version %s\n", brand.Name, brand.Version)
		Printer.Fprintf(cmd.OutOrStdout(), "Build: %s (%s)\n", brand.BuildTime, brand.GitCommit)
	},
}

func init() {
	restartCmd.Flags().BoolVarP(&restartYes, "yes", "y", false, "Confirm the restart")
	rootCmd.AddCommand(statusCmd, enableCmd, disableCmd, restartCmd, rateLimitCmd, versionCmd)
}
