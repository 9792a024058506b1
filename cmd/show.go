package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/config"
)

var (
	showFormat  string
	historySize int
)

var showCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Print the configuration",
	Long: `Print the configuration as HCL, JSON or YAML.

With a file argument the file is loaded and re-rendered. Without one the
running configuration is fetched from the console API.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return RunShowFile(cmd.OutOrStdout(), args[0], showFormat)
		}
		data, err := newClient().ExportConfig(showFormat)
		if err != nil {
			return fmt.Errorf("failed to fetch config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List configuration revisions of the running console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		revs, err := newClient().GetRevisions(historySize)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		Printer.Fprintln(w, "ID\tSECTION\tCREATED")
		for _, r := range revs {
			Printer.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Section, humanize.Time(r.CreatedAt))
		}
		return w.Flush()
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [from] [to]",
	Short: "Diff two configuration revisions",
	Long: `Print a unified diff between two revisions of the running console.

"to" is a revision ID or "running" and defaults to the latest revision;
"from" defaults to the revision before "to".`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var from, to string
		if len(args) > 0 {
			from = args[0]
		}
		if len(args) > 1 {
			to = args[1]
		}
		diff, err := newClient().GetDiff(from, to)
		if err != nil {
			return err
		}
		if diff == "" {
			Printer.Fprintln(cmd.OutOrStdout(), "No changes.")
			return nil
		}
		_, err = io.WriteString(cmd.OutOrStdout(), diff)
		return err
	},
}

var initCmd = &cobra.Command{
	Use:   "init <config-file>",
	Short: "Write the default configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		if err := config.SaveFile(config.Default(), args[0]); err != nil {
			return err
		}
		Printer.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
		return nil
	},
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "f", config.FormatHCL, "Output format (hcl, json, yaml)")
	historyCmd.Flags().IntVarP(&historySize, "limit", "n", 20, "Number of revisions")
	rootCmd.AddCommand(showCmd, historyCmd, diffCmd, initCmd)
}

// RunShowFile loads configFile and renders it in format.
func RunShowFile(w io.Writer, configFile, format string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	data, err := config.Export(cfg, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
