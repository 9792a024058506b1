package console

import (
	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/iplist"
)

// Session runs console operations with its own printer, so each API
// request or SSH session gets outcomes and notifications in its language.
type Session struct {
	c *Console
	p *message.Printer
}

// For returns a session that words outcomes with p. A nil p uses the
// console's printer.
func (c *Console) For(p *message.Printer) Session {
	if p == nil {
		p = c.printer
	}
	return Session{c: c, p: p}
}

// Printer returns the session's printer.
func (s Session) Printer() *message.Printer {
	return s.p
}

// AddWhitelistIP adds ip to the whitelist.
func (c *Console) AddWhitelistIP(ip string) (Outcome, error) {
	return c.For(nil).AddWhitelistIP(ip)
}

// AddBlacklistIP adds ip to the blacklist.
func (c *Console) AddBlacklistIP(ip string) (Outcome, error) {
	return c.For(nil).AddBlacklistIP(ip)
}

// AddIP adds ip to the named list. See Session.AddIP.
func (c *Console) AddIP(name iplist.Name, ip string) (Outcome, error) {
	return c.For(nil).AddIP(name, ip)
}

// RemoveIP removes ip from the named list. See Session.RemoveIP.
func (c *Console) RemoveIP(name iplist.Name, ip string) Outcome {
	return c.For(nil).RemoveIP(name, ip)
}

func (c *Console) CommitSecurityToggles(t config.SecurityToggles) Outcome {
	return c.For(nil).CommitSecurityToggles(t)
}

func (c *Console) ResetSecurityToggles() Outcome {
	return c.For(nil).ResetSecurityToggles()
}

func (c *Console) CommitRateLimit(form config.RateLimitForm) (Outcome, error) {
	return c.For(nil).CommitRateLimit(form)
}

func (c *Console) CommitSystem(form config.SystemForm) (Outcome, error) {
	return c.For(nil).CommitSystem(form)
}

func (c *Console) SetEnabled(enabled bool) Outcome {
	return c.For(nil).SetEnabled(enabled)
}

// ReloadConfig replaces the whole configuration. See Session.ReloadConfig.
func (c *Console) ReloadConfig(cfg *config.Config) (Outcome, error) {
	return c.For(nil).ReloadConfig(cfg)
}

func (c *Console) SetThreatLevel(level string) (Outcome, error) {
	return c.For(nil).SetThreatLevel(level)
}

func (c *Console) RefreshLogs() Outcome {
	return c.For(nil).RefreshLogs()
}

func (c *Console) ClearLogs(confirmed bool) (Outcome, error) {
	return c.For(nil).ClearLogs(confirmed)
}

func (c *Console) Restart(confirmed bool) (Outcome, error) {
	return c.For(nil).Restart(confirmed)
}
