package tui

import (
	"github.com/charmbracelet/lipgloss"

	"grimm.is/iwaf/internal/view"
)

// Palette. Severity colors are the ones the web view uses.
var (
	ColorAccent  = lipgloss.Color("#3498db")
	ColorDeep    = lipgloss.Color("#596E79") // secondary text, borders
	ColorDark    = lipgloss.Color("#2C3E50")
	ColorText    = lipgloss.Color("#E0E0E0")
	ColorSuccess = lipgloss.Color(view.ColorSuccess)
	ColorError   = lipgloss.Color(view.ColorError)
	ColorWarning = lipgloss.Color(view.ColorWarning)
	ColorInfo    = lipgloss.Color(view.ColorInfo)
	ColorMuted   = lipgloss.Color(view.ColorMuted)
)

// Styles
var (
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorDeep).
			Padding(0, 1)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Italic(true)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDeep).
			Padding(0, 1).
			Margin(0, 1)

	StyleTableRow = lipgloss.NewStyle().
			Padding(0, 1)

	StyleTableRowSelected = lipgloss.NewStyle().
				Foreground(ColorText).
				Background(ColorDeep).
				Bold(true).
				Padding(0, 1)

	StyleApp = lipgloss.NewStyle().Margin(1, 2)

	StyleTopBar = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorDeep).
			Padding(0, 1).
			MarginBottom(1)

	StyleMenuItem = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Padding(0, 1)

	StyleMenuItemActive = lipgloss.NewStyle().
				Foreground(ColorDark).
				Background(ColorAccent).
				Bold(true).
				Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Faint(true)

	StyleHelp = lipgloss.NewStyle().Foreground(ColorMuted)
)

// colored renders s in a view color ("#rrggbb").
func colored(hex, s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(s)
}

// levelColors maps log line classes to colors.
var levelColors = map[string]string{
	"debug": view.ColorMuted,
	"info":  view.ColorInfo,
	"warn":  view.ColorWarning,
	"error": view.ColorError,
}
