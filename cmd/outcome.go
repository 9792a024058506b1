package cmd

import (
	"errors"
	"io"

	"github.com/charmbracelet/lipgloss"

	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/view"
)

// reportOutcome prints out and turns rejections into a non-zero exit.
func reportOutcome(w io.Writer, out console.Outcome, err error) error {
	if out.Kind == "" {
		return err
	}
	mark := lipgloss.NewStyle().Foreground(lipgloss.Color(view.SeverityColor(out.Severity))).Render("●")
	Printer.Fprintf(w, "%s %s\n", mark, out.Message)
	if err != nil {
		return errSilent
	}
	return nil
}

// errSilent fails the command after its message was already printed.
var errSilent = errors.New("")
