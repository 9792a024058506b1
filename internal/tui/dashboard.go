package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/view"
)

var tabHelp = map[view.TabID]string{
	view.TabDashboard: "tab/1-5 switch · q quit",
	view.TabSecurity:  "e edit · r reset to defaults · q quit",
	view.TabIPFilter:  "w add whitelist · b add blacklist · ↑/↓ select · d remove · q quit",
	view.TabLogs:      "f filter · r refresh · c clear · q quit",
	view.TabSystem:    "e system settings · l rate limit · t enable/disable · R restart · q quit",
}

// View renders the application
func (m Model) View() string {
	doc := m.viewTopBar() + "\n"

	switch {
	case m.mode == modeForm || m.mode == modeConfirm:
		doc += m.viewForm()
	case m.dash == nil && m.err != nil:
		doc += colored(view.ColorError, m.err.Error())
	case m.dash == nil:
		doc += StyleSubtitle.Render("Loading...")
	default:
		doc += m.viewStatusLine() + "\n\n" + m.viewTab()
	}

	doc += "\n" + m.viewFooter()
	return StyleApp.Render(doc)
}

// viewTopBar renders the brand and the tab menu.
func (m Model) viewTopBar() string {
	items := []string{StyleTitle.Render(brand.Name + " ")}
	for _, tab := range view.Tabs(m.printer, m.tab) {
		key := StyleMenuKey.Render("[" + tab.Key + "]")
		if tab.Active {
			items = append(items, StyleMenuItemActive.Render(key+" "+tab.Label))
		} else {
			items = append(items, StyleMenuItem.Render(key+" "+tab.Label))
		}
	}
	return StyleTopBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, items...))
}

func (m Model) viewStatusLine() string {
	d := m.dash
	status := colored(d.Status.Color, "● "+d.Status.Label)
	uptime := StyleSubtitle.Render(m.printer.Sprintf(i18n.LabelUptime) + ": " + d.Uptime)
	line := status + "  " + uptime
	if d.Restart.InProgress {
		line += "  " + colored(view.ColorWarning, m.printer.Sprintf(i18n.MsgRestarting))
	}
	return line
}

func (m Model) viewTab() string {
	switch m.tab {
	case view.TabSecurity:
		return m.viewSecurity()
	case view.TabIPFilter:
		return m.viewIPFilter()
	case view.TabLogs:
		return m.viewLogs()
	case view.TabSystem:
		return m.viewSystem()
	}
	return m.viewDashboard()
}

func (m Model) viewDashboard() string {
	d := m.dash
	cards := make([]string, 0, len(d.Counters)+2)
	for _, c := range d.Counters {
		cards = append(cards, StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleSubtitle.Render(c.Label),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Color)).Render(c.Display),
		)))
	}
	cards = append(cards,
		StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleSubtitle.Render(m.printer.Sprintf(i18n.LabelThreatLevel)),
			colored(d.Threat.Color, d.Threat.Label),
		)),
		StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleSubtitle.Render(m.printer.Sprintf(i18n.LabelUptime)),
			d.Uptime,
		)),
	)

	chart := StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render("Requests"),
		colored(d.Chart.Color, sparkline(d.Chart.Points, 3)),
	))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards...),
		chart,
	)
}

var sparkBars = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the chart values as block characters, each repeated
// width times.
func sparkline(points []view.Point, width int) string {
	var top float64
	for _, p := range points {
		top = max(top, p.Value)
	}
	var sb strings.Builder
	for _, p := range points {
		i := 0
		if top > 0 {
			i = int(p.Value / top * float64(len(sparkBars)-1))
		}
		sb.WriteString(strings.Repeat(string(sparkBars[i]), width))
	}
	return sb.String()
}

func (m Model) viewSecurity() string {
	t := m.dash.Security.Toggles
	rows := []struct {
		label string
		on    bool
	}{
		{"SQL Injection Protection", t.SQLInjection},
		{"XSS Protection", t.XSSProtection},
		{"Path Traversal Protection", t.PathTraversal},
		{"User-Agent Filtering", t.UserAgent},
	}

	lines := []string{StyleTitle.Render(m.printer.Sprintf(i18n.LabelSecurity))}
	for _, r := range rows {
		mark := colored(view.ColorError, "✗")
		if r.on {
			mark = colored(view.ColorSuccess, "✓")
		}
		lines = append(lines, mark+" "+m.printer.Sprintf(r.label))
	}
	if m.dash.Security.Pending {
		lines = append(lines, "", colored(view.ColorWarning, m.printer.Sprintf(i18n.LabelPending)))
	}
	return StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) viewIPFilter() string {
	d := m.dash
	column := func(title string, tags []view.IPTag, offset int) string {
		lines := []string{StyleTitle.Render(title)}
		if len(tags) == 0 {
			lines = append(lines, StyleSubtitle.Render(m.printer.Sprintf(i18n.LabelNoEntries)))
		}
		for i, tag := range tags {
			style := StyleTableRow
			if m.mode == modeNormal && offset+i == m.cursor {
				style = StyleTableRowSelected
			}
			lines = append(lines, style.Render(tag.IP))
		}
		return StyleCard.Width(30).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top,
		column(m.printer.Sprintf(i18n.LabelWhitelist), d.Whitelist, 0),
		column(m.printer.Sprintf(i18n.LabelBlacklist), d.Blacklist, len(d.Whitelist)),
	)
	if m.mode == modeInput {
		out = lipgloss.JoinVertical(lipgloss.Left, out, "", m.input.View())
	}
	return out
}

func (m Model) viewLogs() string {
	d := m.dash
	limit := 20
	if m.height > 16 {
		limit = m.height - 14
	}

	lines := []string{StyleSubtitle.Render(m.printer.Sprintf(i18n.LabelLogFilter, d.LogFilter))}
	if len(d.Logs) == 0 {
		lines = append(lines, StyleSubtitle.Render(m.printer.Sprintf(i18n.LabelNoEntries)))
	}
	for i, l := range d.Logs {
		if i == limit {
			lines = append(lines, StyleSubtitle.Render(fmt.Sprintf("… %d more", len(d.Logs)-limit)))
			break
		}
		line := fmt.Sprintf("[%s] %-5s %s", l.Timestamp, l.Level, l.Message)
		if l.IP != "" {
			line += " (" + l.IP + ")"
		}
		lines = append(lines, colored(levelColors[l.Class], line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewSystem() string {
	d := m.dash
	onOff := func(b bool) string {
		if b {
			return colored(view.ColorSuccess, "on")
		}
		return colored(view.ColorMuted, "off")
	}
	row := func(label, value string) string {
		return lipgloss.NewStyle().Width(24).Render(m.printer.Sprintf(label)) + value
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleTitle.Render(m.printer.Sprintf(i18n.LabelSystem)),
			row("WAF", colored(d.Status.Color, d.Status.Label)),
			row("Log Level", d.System.LogLevel),
			row("Action", d.System.Action),
		)),
		StyleCard.Render(lipgloss.JoinVertical(lipgloss.Left,
			StyleTitle.Render(m.printer.Sprintf("Rate Limiting")),
			row("Rate Limiting", onOff(d.RateLimit.Enabled)),
			row("Requests per Minute", d.RateLimit.RequestsPerMinute),
			row("Burst", d.RateLimit.Burst),
		)),
	)
}

func (m Model) viewForm() string {
	parts := []string{}
	if m.formTitle != "" {
		parts = append(parts, StyleHeader.Render(m.formTitle))
	}
	parts = append(parts, StyleCard.Render(m.form.View()), StyleHelp.Render("esc cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// viewFooter shows the notifications, the last outcome and key help.
func (m Model) viewFooter() string {
	var lines []string
	if m.dash != nil {
		for _, t := range m.dash.Toasts {
			s := lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Faint(t.Leaving).Render("▌ " + t.Message)
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 && m.last != nil {
		lines = append(lines, colored(view.SeverityColor(m.last.Severity), "▌ "+m.last.Message))
	}
	if m.err != nil && m.dash != nil {
		lines = append(lines, colored(view.ColorError, m.err.Error()))
	}
	lines = append(lines, StyleHelp.Render(tabHelp[m.tab]))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
