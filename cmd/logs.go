package cmd

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/client"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/events"
)

var (
	logsLevel  string
	logsLimit  int
	logsFollow bool
	logsYes    bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the console log",
	Long: `Print the console log, oldest first.

With --follow new entries are streamed over the websocket feed until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := eventlog.ParseLevel(logsLevel)
		if err != nil {
			return err
		}
		cl := newClient()
		entries, err := cl.GetLogs(client.GetLogsArgs{Level: level, Limit: logsLimit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		slices.Reverse(entries)
		for _, e := range entries {
			printEntry(out, e)
		}
		if !logsFollow {
			return nil
		}
		return followLogs(cl, out, level)
	},
}

var logsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Append a refresh marker to the log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newClient().RefreshLogs()
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var logsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every log entry (requires --yes)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newClient().ClearLogs(logsYes)
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

func init() {
	f := logsCmd.Flags()
	f.StringVarP(&logsLevel, "level", "l", "all", "Only entries at this level (debug, info, warn, error, all)")
	f.IntVarP(&logsLimit, "limit", "n", 0, "Most recent entries to print (0 for all)")
	f.BoolVarP(&logsFollow, "follow", "f", false, "Stream new entries")
	logsClearCmd.Flags().BoolVarP(&logsYes, "yes", "y", false, "Confirm clearing the log")
	logsCmd.AddCommand(logsRefreshCmd, logsClearCmd)
	rootCmd.AddCommand(logsCmd)
}

func printEntry(w io.Writer, e eventlog.Entry) {
	line := Printer.Sprintf("[%s] %-5s %s", e.Timestamp, strings.ToUpper(string(e.Level)), e.Message)
	if e.IP != "" {
		line += " (" + e.IP + ")"
	}
	Printer.Fprintln(w, line)
}

// followLogs streams appended entries until SIGINT or SIGTERM.
func followLogs(cl *client.HTTPClient, w io.Writer, level eventlog.Level) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
			close(stop)
		case <-done:
		}
	}()

	return cl.Watch([]string{events.EventLogAppend.Topic()}, stop, func(ev client.Event) {
		if ev.Type != string(events.EventLogAppend) {
			return
		}
		var e eventlog.Entry
		if err := json.Unmarshal(ev.Data, &e); err != nil {
			return
		}
		if level != eventlog.LevelAll && e.Level != level {
			return
		}
		printEntry(w, e)
	})
}
