package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/tui"
)

var tuiConfigFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal console",
	Long: `Open the terminal console.

With --remote the console attaches to a running "iwaf serve" over its API.
Without it, a private console is started in this process from --config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var backend tui.Backend
		if remoteURL != "" {
			cl := newClient()
			if _, err := cl.GetStatus(); err != nil {
				return fmt.Errorf("cannot reach %s: %w", remoteURL, err)
			}
			backend = tui.NewRemoteBackend(cl)
		} else {
			cfg, _, err := loadServeConfig(tuiConfigFile)
			if err != nil {
				return err
			}
			// Logs would draw over the alternate screen.
			logger := logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard})
			if logFile != "" {
				logger = logging.New(logging.Config{
					Level:  logging.LevelInfo,
					Output: io.Discard,
					File:   &logging.FileConfig{Path: logFile},
				})
			}
			c, err := console.New(console.Options{Config: cfg, Logger: logger, Printer: Printer})
			if err != nil {
				return err
			}
			c.Start()
			defer c.Stop()
			backend = tui.NewLocalBackend(c, Printer)
		}

		m := tui.NewModel(backend, Printer)
		defer m.Close()
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiConfigFile, "config", "c", brand.GetConfigPath(), "Configuration file for the in-process console")
	rootCmd.AddCommand(tuiCmd)
}
