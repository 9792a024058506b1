package view

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/notification"
)

// Default chart canvas size.
const (
	DefaultChartWidth  = 400
	DefaultChartHeight = 200
)

// Options tunes a projection.
type Options struct {
	Printer     *message.Printer
	ActiveTab   TabID
	LogLevel    eventlog.Level
	ChartWidth  float64
	ChartHeight float64
}

// Dashboard is everything a renderer needs for one frame.
type Dashboard struct {
	Tabs      []Tab         `json:"tabs"`
	Status    Status        `json:"status"`
	Counters  []Counter     `json:"counters"`
	Threat    Threat        `json:"threat"`
	Uptime    string        `json:"uptime"`
	Chart     Chart         `json:"chart"`
	Security  Security      `json:"security"`
	RateLimit RateLimit     `json:"rate_limit"`
	System    System        `json:"system"`
	Whitelist []IPTag       `json:"whitelist"`
	Blacklist []IPTag       `json:"blacklist"`
	LogFilter string        `json:"log_filter"`
	Logs      []LogLine     `json:"logs"`
	Toasts    []Toast       `json:"toasts"`
	Restart   RestartStatus `json:"restart"`
}

// Status is the WAF on/off indicator.
type Status struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
	Color   string `json:"color"`
	Icon    string `json:"icon"`
}

// Counter is one dashboard stat card.
type Counter struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Value   int    `json:"value"`
	Display string `json:"display"`
	Color   string `json:"color"`
}

// Threat is the threat level card.
type Threat struct {
	Level string `json:"level"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Chart is the request chart.
type Chart struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

// Security is the protection toggle form. Pending is set when a reset put
// defaults into the form that have not been saved.
type Security struct {
	Toggles config.SecurityToggles `json:"toggles"`
	Pending bool                   `json:"pending"`
}

// RateLimit is the rate-limit form, numbers as text.
type RateLimit struct {
	Enabled           bool   `json:"enabled"`
	RequestsPerMinute string `json:"requests_per_minute"`
	Burst             string `json:"burst"`
}

// System is the system settings form with its choices.
type System struct {
	LogLevel  string   `json:"log_level"`
	Action    string   `json:"action"`
	LogLevels []string `json:"log_levels"`
	Actions   []string `json:"actions"`
}

// IPTag is one removable list chip.
type IPTag struct {
	IP   string `json:"ip"`
	List string `json:"list"`
}

// LogLine is one row of the log viewer.
type LogLine struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Class     string `json:"class"`
	Message   string `json:"message"`
	IP        string `json:"ip,omitempty"`
}

// Toast is one notification.
type Toast struct {
	ID       string `json:"id"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	Leaving  bool   `json:"leaving"`
}

// RestartStatus reports an in-flight restart.
type RestartStatus struct {
	InProgress bool `json:"in_progress"`
}

// Project builds the dashboard model for snap.
func Project(snap console.Snapshot, opts Options) Dashboard {
	p := opts.Printer
	if p == nil {
		p = i18n.NewPrinter(i18n.DefaultLang)
	}
	w, h := opts.ChartWidth, opts.ChartHeight
	if w <= 0 {
		w = DefaultChartWidth
	}
	if h <= 0 {
		h = DefaultChartHeight
	}
	filter := opts.LogLevel
	if filter == "" {
		filter = eventlog.LevelAll
	}

	cfg := snap.Config
	if cfg == nil {
		cfg = config.Default()
	}

	d := Dashboard{
		Tabs:      Tabs(p, ParseTab(string(opts.ActiveTab))),
		Status:    projectStatus(p, cfg.Enabled),
		Threat:    Threat{Level: string(snap.Stats.ThreatLevel), Label: ThreatLabel(p, snap.Stats.ThreatLevel), Color: ThreatColor(snap.Stats.ThreatLevel)},
		Uptime:    FormatUptime(p, snap.Uptime),
		Chart:     Chart{Width: w, Height: h, Color: ColorInfo, Points: ChartPoints(RequestSeries, w, h)},
		Security:  Security{Toggles: cfg.Toggles()},
		RateLimit: projectRateLimit(cfg.RateLimit),
		System: System{
			LogLevel:  cfg.LogLevel,
			Action:    cfg.Action,
			LogLevels: config.LogLevels,
			Actions:   config.Actions,
		},
		Whitelist: projectTags(iplist.Whitelist, cfg.IPWhitelist),
		Blacklist: projectTags(iplist.Blacklist, cfg.IPBlacklist),
		LogFilter: string(filter),
		Logs:      projectLogs(p, snap.Logs, filter),
		Toasts:    projectToasts(snap.Notifications),
		Restart:   RestartStatus{InProgress: snap.Restarting},
	}
	if snap.PendingSecurity != nil {
		d.Security = Security{Toggles: *snap.PendingSecurity, Pending: true}
	}

	s := snap.Stats
	d.Counters = []Counter{
		{Key: "total_requests", Label: p.Sprintf(i18n.LabelTotalRequests), Value: s.TotalRequests, Display: FormatCount(s.TotalRequests), Color: ColorInfo},
		{Key: "blocked_requests", Label: p.Sprintf(i18n.LabelBlockedRequests), Value: s.BlockedRequests, Display: FormatCount(s.BlockedRequests), Color: ColorError},
		{Key: "safe_requests", Label: p.Sprintf(i18n.LabelSafeRequests), Value: s.SafeRequests, Display: FormatCount(s.SafeRequests), Color: ColorSuccess},
	}
	return d
}

// ToJSON serializes the dashboard for the web UI.
func (d Dashboard) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}

func projectStatus(p *message.Printer, enabled bool) Status {
	if enabled {
		return Status{Enabled: true, Label: p.Sprintf(i18n.LabelRunning), Color: ColorSuccess, Icon: "check-circle"}
	}
	return Status{Label: p.Sprintf(i18n.LabelStopped), Color: ColorError, Icon: "times-circle"}
}

func projectRateLimit(rl config.RateLimitConfig) RateLimit {
	return RateLimit{
		Enabled:           rl.Enabled,
		RequestsPerMinute: itoa(rl.RequestsPerMinute),
		Burst:             itoa(rl.Burst),
	}
}

func projectTags(list iplist.Name, ips []string) []IPTag {
	tags := make([]IPTag, 0, len(ips))
	for _, ip := range ips {
		tags = append(tags, IPTag{IP: ip, List: string(list)})
	}
	return tags
}

func projectLogs(p *message.Printer, entries []eventlog.Entry, filter eventlog.Level) []LogLine {
	lines := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		if filter != eventlog.LevelAll && e.Level != filter {
			continue
		}
		lines = append(lines, LogLine{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Level:     strings.ToUpper(string(e.Level)),
			Class:     string(e.Level),
			Message:   p.Sprintf(e.Message),
			IP:        e.IP,
		})
	}
	return lines
}

func projectToasts(notes []notification.Notification) []Toast {
	toasts := make([]Toast, 0, len(notes))
	for _, n := range notes {
		toasts = append(toasts, Toast{
			ID:       n.ID,
			Message:  n.Message,
			Severity: n.Severity,
			Color:    SeverityColor(n.Severity),
			Icon:     SeverityIcon(n.Severity),
			Leaving:  n.Phase == notification.PhaseLeaving,
		})
	}
	return toasts
}
