// Package tui is the terminal console: the dashboard, security, IP filter,
// logs and system tabs rendered with lipgloss over a Backend that is either
// an in-process Console or a remote API.
package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/view"
)

type mode int

const (
	modeNormal mode = iota
	modeInput
	modeForm
	modeConfirm
)

type (
	dashboardMsg    struct{ d *view.Dashboard }
	errMsg          struct{ err error }
	tickMsg         time.Time
	eventMsg        events.Event
	eventsClosedMsg struct{}
)

type outcomeMsg struct {
	out console.Outcome
	err error
}

// logFilters is the order the filter key cycles through.
var logFilters = []eventlog.Level{
	eventlog.LevelAll, eventlog.LevelDebug, eventlog.LevelInfo, eventlog.LevelWarn, eventlog.LevelError,
}

// Model is the main application state
type Model struct {
	backend Backend
	printer *message.Printer

	tab   view.TabID
	level eventlog.Level
	dash  *view.Dashboard
	err   error
	last  *console.Outcome

	width  int
	height int

	mode      mode
	input     textinput.Model
	target    iplist.Name
	form      *huh.Form
	formTitle string
	submit    tea.Cmd
	abort     tea.Cmd
	cursor    int

	events <-chan events.Event
	cancel func()
}

// NewModel creates the model and subscribes to backend events. Call Close
// when the program exits.
func NewModel(backend Backend, p *message.Printer) Model {
	if p == nil {
		p = i18n.NewPrinter(i18n.DefaultLang)
	}
	ti := textinput.New()
	ti.Placeholder = "192.168.1.100"
	ti.CharLimit = 45

	ch, cancel := backend.Subscribe()
	return Model{
		backend: backend,
		printer: p,
		tab:     view.TabDashboard,
		level:   eventlog.LevelAll,
		input:   ti,
		events:  ch,
		cancel:  cancel,
	}
}

// Close stops the event subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick(), waitForEvent(m.events))
}

func (m Model) fetch() tea.Cmd {
	backend, tab, level := m.backend, m.tab, m.level
	return func() tea.Msg {
		d, err := backend.Dashboard(tab, level)
		if err != nil {
			return errMsg{err}
		}
		return dashboardMsg{d}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// act runs a backend operation and reports its outcome.
func act(f func() (console.Outcome, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := f()
		return outcomeMsg{out, err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.form != nil {
			m.form = m.form.WithWidth(min(msg.Width-8, 72))
		}
		return m, nil
	case dashboardMsg:
		m.dash = msg.d
		m.err = nil
		m.cursor = min(m.cursor, max(len(m.ipTags())-1, 0))
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	case outcomeMsg:
		if msg.out.Kind != "" {
			out := msg.out
			m.last = &out
		} else if msg.err != nil {
			m.err = msg.err
		}
		return m, m.fetch()
	case tickMsg:
		return m, tea.Batch(m.fetch(), tick())
	case eventMsg:
		return m, tea.Batch(m.fetch(), waitForEvent(m.events))
	case eventsClosedMsg:
		m.events = nil
		return m, nil
	}

	switch m.mode {
	case modeInput:
		return m.updateInput(msg)
	case modeForm, modeConfirm:
		return m.updateForm(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "tab", "right":
		return m.switchTab(view.Next(m.tab))
	case "shift+tab", "left":
		return m.switchTab(view.Prev(m.tab))
	case "1", "2", "3", "4", "5":
		n, _ := strconv.Atoi(key.String())
		return m.switchTab(view.TabOrder[n-1])
	}

	b := m.backend
	switch m.tab {
	case view.TabSecurity:
		switch key.String() {
		case "e", "enter":
			return m.editSecurity()
		case "r":
			return m, act(b.ResetSecurityToggles)
		}

	case view.TabIPFilter:
		switch key.String() {
		case "w":
			return m.startInput(iplist.Whitelist)
		case "b":
			return m.startInput(iplist.Blacklist)
		case "up", "k":
			m.cursor = max(m.cursor-1, 0)
		case "down", "j":
			m.cursor = min(m.cursor+1, max(len(m.ipTags())-1, 0))
		case "d", "x", "delete":
			tags := m.ipTags()
			if m.cursor < len(tags) {
				tag := tags[m.cursor]
				return m, act(func() (console.Outcome, error) {
					return b.RemoveIP(iplist.Name(tag.List), tag.IP)
				})
			}
		}

	case view.TabLogs:
		switch key.String() {
		case "f":
			m.level = nextFilter(m.level)
			return m, m.fetch()
		case "r":
			return m, act(b.RefreshLogs)
		case "c":
			return m.confirm(i18n.MsgConfirmClearLogs, b.ClearLogs)
		}

	case view.TabSystem:
		switch key.String() {
		case "e", "enter":
			return m.editSystem()
		case "l":
			return m.editRateLimit()
		case "t":
			enabled := m.dash == nil || !m.dash.Status.Enabled
			return m, act(func() (console.Outcome, error) { return b.SetEnabled(enabled) })
		case "R":
			return m.confirm(i18n.MsgConfirmRestart, b.Restart)
		}
	}
	return m, nil
}

func (m Model) switchTab(tab view.TabID) (tea.Model, tea.Cmd) {
	m.tab = tab
	m.cursor = 0
	return m, m.fetch()
}

func nextFilter(l eventlog.Level) eventlog.Level {
	for i, f := range logFilters {
		if f == l {
			return logFilters[(i+1)%len(logFilters)]
		}
	}
	return eventlog.LevelAll
}

// ipTags is the whitelist followed by the blacklist, the cursor's order.
func (m Model) ipTags() []view.IPTag {
	if m.dash == nil {
		return nil
	}
	tags := make([]view.IPTag, 0, len(m.dash.Whitelist)+len(m.dash.Blacklist))
	tags = append(tags, m.dash.Whitelist...)
	return append(tags, m.dash.Blacklist...)
}

func (m Model) startInput(list iplist.Name) (tea.Model, tea.Cmd) {
	m.mode = modeInput
	m.target = list
	m.input.SetValue("")
	label := i18n.LabelAddWhitelist
	if list == iplist.Blacklist {
		label = i18n.LabelAddBlacklist
	}
	m.input.Prompt = m.printer.Sprintf(label) + ": "
	return m, m.input.Focus()
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			m.mode = modeNormal
			m.input.Blur()
			return m, nil
		case tea.KeyEnter:
			b, list, ip := m.backend, m.target, m.input.Value()
			m.mode = modeNormal
			m.input.Blur()
			return m, act(func() (console.Outcome, error) { return b.AddIP(list, ip) })
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openForm shows form; submit runs when it completes.
func (m Model) openForm(title string, form *huh.Form, submit, abort tea.Cmd) (tea.Model, tea.Cmd) {
	if m.width > 0 {
		form = form.WithWidth(min(m.width-8, 72))
	}
	m.mode = modeForm
	m.form = form
	m.formTitle = title
	m.submit = submit
	m.abort = abort
	return m, form.Init()
}

func (m Model) closeForm() Model {
	m.mode = modeNormal
	m.form = nil
	m.submit = nil
	m.abort = nil
	return m
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		abort := m.abort
		return m.closeForm(), abort
	}

	model, cmd := m.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		submit := m.submit
		return m.closeForm(), tea.Batch(cmd, submit)
	case huh.StateAborted:
		abort := m.abort
		return m.closeForm(), tea.Batch(cmd, abort)
	}
	return m, cmd
}

func (m Model) editSecurity() (tea.Model, tea.Cmd) {
	toggles := new(config.SecurityToggles)
	if m.dash != nil {
		*toggles = m.dash.Security.Toggles
	}
	form, err := AutoForm(toggles, m.printer)
	if err != nil {
		m.err = err
		return m, nil
	}
	b := m.backend
	return m.openForm(m.printer.Sprintf(i18n.LabelSecurity), form,
		act(func() (console.Outcome, error) { return b.CommitSecurityToggles(*toggles) }), nil)
}

func (m Model) editRateLimit() (tea.Model, tea.Cmd) {
	rl := new(config.RateLimitForm)
	if m.dash != nil {
		*rl = config.RateLimitForm{
			Enabled:           m.dash.RateLimit.Enabled,
			RequestsPerMinute: m.dash.RateLimit.RequestsPerMinute,
			Burst:             m.dash.RateLimit.Burst,
		}
	}
	form, err := AutoForm(rl, m.printer)
	if err != nil {
		m.err = err
		return m, nil
	}
	b := m.backend
	return m.openForm(m.printer.Sprintf("Rate Limiting"), form,
		act(func() (console.Outcome, error) { return b.CommitRateLimit(*rl) }), nil)
}

func (m Model) editSystem() (tea.Model, tea.Cmd) {
	sys := new(config.SystemForm)
	if m.dash != nil {
		*sys = config.SystemForm{LogLevel: m.dash.System.LogLevel, Action: m.dash.System.Action}
	}
	form, err := AutoForm(sys, m.printer)
	if err != nil {
		m.err = err
		return m, nil
	}
	b := m.backend
	return m.openForm(m.printer.Sprintf(i18n.LabelSystem), form,
		act(func() (console.Outcome, error) { return b.CommitSystem(*sys) }), nil)
}

// confirm asks prompt and passes the answer to run. Dismissing the dialog
// counts as declining.
func (m Model) confirm(prompt string, run func(bool) (console.Outcome, error)) (tea.Model, tea.Cmd) {
	answer := new(bool)
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(m.printer.Sprintf(prompt)).
			Affirmative(m.printer.Sprintf(i18n.LabelConfirm)).
			Negative(m.printer.Sprintf(i18n.LabelCancel)).
			Value(answer),
	)).WithTheme(huh.ThemeBase16())

	m2, cmd := m.openForm("", form,
		act(func() (console.Outcome, error) { return run(*answer) }),
		act(func() (console.Outcome, error) { return run(false) }))
	mm := m2.(Model)
	mm.mode = modeConfirm
	return mm, cmd
}
