package cmd

import (
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	auditLimit  int
	auditAction string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show changes made through the API of the running console",
	Long: `Show changes made through the API of the running console.

Every request that modifies the console is recorded with its route,
status and client address. The trail is kept in memory.

Example:
  iwaf audit -n 10
  iwaf audit --action "POST /api/lists/{list}"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := newClient().GetAudit(auditLimit, auditAction)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		Printer.Fprintln(w, "WHEN\tACTION\tRESOURCE\tSTATUS\tCLIENT")
		for _, e := range events {
			ip := e.IP
			if ip == "" {
				ip = "-"
			}
			Printer.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				humanize.Time(e.Timestamp), e.Action, e.Resource, e.Status, ip)
		}
		return w.Flush()
	},
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of events")
	auditCmd.Flags().StringVar(&auditAction, "action", "", `Only this route, e.g. "PUT /api/config/enabled"`)
	rootCmd.AddCommand(auditCmd)
}
