// Package view projects a console snapshot into the model a renderer draws:
// localized labels, formatted counters, chart geometry and colored toasts.
//
// The projection is pure. The web API serves it as JSON and the terminal UI
// renders it with lipgloss, so both show the same thing.
package view

import (
	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/i18n"
)

// TabID identifies a console tab. The IDs are the same in every renderer.
type TabID string

const (
	TabDashboard TabID = "dashboard"
	TabSecurity  TabID = "security"
	TabIPFilter  TabID = "ipfilter"
	TabLogs      TabID = "logs"
	TabSystem    TabID = "system"
)

// TabOrder is the navigation order.
var TabOrder = []TabID{TabDashboard, TabSecurity, TabIPFilter, TabLogs, TabSystem}

// Tab is one navigation entry.
type Tab struct {
	ID     TabID  `json:"id"`
	Label  string `json:"label"`
	Icon   string `json:"icon"`
	Key    string `json:"key"` // TUI shortcut
	Active bool   `json:"active"`
}

var tabMeta = map[TabID]struct{ label, icon, key string }{
	TabDashboard: {i18n.LabelDashboard, "tachometer-alt", "1"},
	TabSecurity:  {i18n.LabelSecurity, "shield-alt", "2"},
	TabIPFilter:  {i18n.LabelIPFilter, "filter", "3"},
	TabLogs:      {i18n.LabelLogs, "file-alt", "4"},
	TabSystem:    {i18n.LabelSystem, "cog", "5"},
}

// ParseTab returns the tab with the given ID, or the dashboard.
func ParseTab(s string) TabID {
	if _, ok := tabMeta[TabID(s)]; ok {
		return TabID(s)
	}
	return TabDashboard
}

// Tabs returns the localized tab list with active marked.
func Tabs(p *message.Printer, active TabID) []Tab {
	tabs := make([]Tab, 0, len(TabOrder))
	for _, id := range TabOrder {
		m := tabMeta[id]
		tabs = append(tabs, Tab{
			ID:     id,
			Label:  p.Sprintf(m.label),
			Icon:   m.icon,
			Key:    m.key,
			Active: id == active,
		})
	}
	return tabs
}

// Next returns the tab after id, wrapping around.
func Next(id TabID) TabID {
	for i, t := range TabOrder {
		if t == id {
			return TabOrder[(i+1)%len(TabOrder)]
		}
	}
	return TabDashboard
}

// Prev returns the tab before id, wrapping around.
func Prev(id TabID) TabID {
	for i, t := range TabOrder {
		if t == id {
			return TabOrder[(i+len(TabOrder)-1)%len(TabOrder)]
		}
	}
	return TabDashboard
}
