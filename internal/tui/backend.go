package tui

import (
	"sync"
	"time"

	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/client"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/view"
)

// Backend defines the interface for data retrieval and actions.
type Backend interface {
	Dashboard(tab view.TabID, level eventlog.Level) (*view.Dashboard, error)

	AddIP(name iplist.Name, ip string) (console.Outcome, error)
	RemoveIP(name iplist.Name, ip string) (console.Outcome, error)

	CommitSecurityToggles(t config.SecurityToggles) (console.Outcome, error)
	ResetSecurityToggles() (console.Outcome, error)
	CommitRateLimit(form config.RateLimitForm) (console.Outcome, error)
	CommitSystem(form config.SystemForm) (console.Outcome, error)
	SetEnabled(enabled bool) (console.Outcome, error)

	RefreshLogs() (console.Outcome, error)
	ClearLogs(confirmed bool) (console.Outcome, error)
	Restart(confirmed bool) (console.Outcome, error)

	// Subscribe delivers change events until cancel is called.
	Subscribe() (ch <-chan events.Event, cancel func())
}

// LocalBackend drives a Console in the same process.
type LocalBackend struct {
	console *console.Console
	session console.Session
	printer *message.Printer
}

// NewLocalBackend renders with p, or the console's printer when p is nil.
func NewLocalBackend(c *console.Console, p *message.Printer) *LocalBackend {
	if p == nil {
		p = c.Printer()
	}
	return &LocalBackend{console: c, session: c.For(p), printer: p}
}

func (b *LocalBackend) Dashboard(tab view.TabID, level eventlog.Level) (*view.Dashboard, error) {
	d := view.Project(b.console.Snapshot(), view.Options{
		Printer:   b.printer,
		ActiveTab: tab,
		LogLevel:  level,
	})
	return &d, nil
}

func (b *LocalBackend) AddIP(name iplist.Name, ip string) (console.Outcome, error) {
	return b.session.AddIP(name, ip)
}

func (b *LocalBackend) RemoveIP(name iplist.Name, ip string) (console.Outcome, error) {
	return b.session.RemoveIP(name, ip), nil
}

func (b *LocalBackend) CommitSecurityToggles(t config.SecurityToggles) (console.Outcome, error) {
	return b.session.CommitSecurityToggles(t), nil
}

func (b *LocalBackend) ResetSecurityToggles() (console.Outcome, error) {
	return b.session.ResetSecurityToggles(), nil
}

func (b *LocalBackend) CommitRateLimit(form config.RateLimitForm) (console.Outcome, error) {
	return b.session.CommitRateLimit(form)
}

func (b *LocalBackend) CommitSystem(form config.SystemForm) (console.Outcome, error) {
	return b.session.CommitSystem(form)
}

func (b *LocalBackend) SetEnabled(enabled bool) (console.Outcome, error) {
	return b.session.SetEnabled(enabled), nil
}

func (b *LocalBackend) RefreshLogs() (console.Outcome, error) {
	return b.session.RefreshLogs(), nil
}

func (b *LocalBackend) ClearLogs(confirmed bool) (console.Outcome, error) {
	return b.session.ClearLogs(confirmed)
}

func (b *LocalBackend) Restart(confirmed bool) (console.Outcome, error) {
	return b.session.Restart(confirmed)
}

// Subscribe forwards hub events. Events only trigger a refresh, so a
// full buffer drops them.
func (b *LocalBackend) Subscribe() (<-chan events.Event, func()) {
	hub := b.console.Hub()
	in := hub.Subscribe(64)
	out := make(chan events.Event, 16)
	stop := make(chan struct{})
	go func() {
		defer close(out)
		defer hub.Unsubscribe(in)
		for {
			select {
			case <-stop:
				return
			case ev := <-in:
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	var once sync.Once
	return out, func() { once.Do(func() { close(stop) }) }
}

// RemoteBackend implements Backend using the HTTP API.
type RemoteBackend struct {
	client *client.HTTPClient
}

// NewRemoteBackend wraps c. Localized views follow the client's language.
func NewRemoteBackend(c *client.HTTPClient) *RemoteBackend {
	return &RemoteBackend{client: c}
}

func (b *RemoteBackend) Dashboard(tab view.TabID, level eventlog.Level) (*view.Dashboard, error) {
	return b.client.GetDashboard(client.DashboardArgs{Tab: tab, Level: level})
}

func (b *RemoteBackend) AddIP(name iplist.Name, ip string) (console.Outcome, error) {
	return b.client.AddIP(name, ip)
}

func (b *RemoteBackend) RemoveIP(name iplist.Name, ip string) (console.Outcome, error) {
	return b.client.RemoveIP(name, ip)
}

func (b *RemoteBackend) CommitSecurityToggles(t config.SecurityToggles) (console.Outcome, error) {
	return b.client.CommitSecurityToggles(t)
}

func (b *RemoteBackend) ResetSecurityToggles() (console.Outcome, error) {
	out, _, err := b.client.ResetSecurityToggles()
	return out, err
}

func (b *RemoteBackend) CommitRateLimit(form config.RateLimitForm) (console.Outcome, error) {
	return b.client.CommitRateLimit(form)
}

func (b *RemoteBackend) CommitSystem(form config.SystemForm) (console.Outcome, error) {
	return b.client.CommitSystem(form)
}

func (b *RemoteBackend) SetEnabled(enabled bool) (console.Outcome, error) {
	return b.client.SetEnabled(enabled)
}

func (b *RemoteBackend) RefreshLogs() (console.Outcome, error) {
	return b.client.RefreshLogs()
}

func (b *RemoteBackend) ClearLogs(confirmed bool) (console.Outcome, error) {
	return b.client.ClearLogs(confirmed)
}

func (b *RemoteBackend) Restart(confirmed bool) (console.Outcome, error) {
	return b.client.Restart(confirmed)
}

// Subscribe streams the websocket. A dropped connection ends the stream;
// the model keeps polling regardless.
func (b *RemoteBackend) Subscribe() (<-chan events.Event, func()) {
	ch := make(chan events.Event, 64)
	stop := make(chan struct{})
	go func() {
		defer close(ch)
		topics := []string{"stats", "logs", "notification", "config", "system"}
		_ = b.client.Watch(topics, stop, func(ev client.Event) {
			select {
			case ch <- events.Event{Type: events.EventType(ev.Type), Timestamp: ev.Timestamp, Source: "remote"}:
			default:
			}
		})
	}()
	var once sync.Once
	return ch, func() { once.Do(func() { close(stop) }) }
}

// pollInterval is how often the model refreshes without events.
const pollInterval = time.Second
