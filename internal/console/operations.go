package console

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/notification"
	"grimm.is/iwaf/internal/scheduler"
)

// Section names recorded with each config revision.
const (
	SectionLists     = "lists"
	SectionSecurity  = "security"
	SectionRateLimit = "rate_limit"
	SectionSystem    = "system"
	SectionEnabled   = "enabled"
	SectionReload    = "reload"
)

var listMessages = map[iplist.Name]map[iplist.Result]string{
	iplist.Whitelist: {
		iplist.Added:     i18n.MsgWhitelistAdded,
		iplist.Duplicate: i18n.MsgWhitelistDuplicate,
		iplist.Removed:   i18n.MsgWhitelistRemoved,
	},
	iplist.Blacklist: {
		iplist.Added:     i18n.MsgBlacklistAdded,
		iplist.Duplicate: i18n.MsgBlacklistDuplicate,
		iplist.Removed:   i18n.MsgBlacklistRemoved,
	},
}

// AddWhitelistIP adds ip to the whitelist.
func (s Session) AddWhitelistIP(ip string) (Outcome, error) {
	return s.AddIP(iplist.Whitelist, ip)
}

// AddBlacklistIP adds ip to the blacklist.
func (s Session) AddBlacklistIP(ip string) (Outcome, error) {
	return s.AddIP(iplist.Blacklist, ip)
}

// AddIP trims ip and appends it to the named list. Invalid input returns
// ErrInvalidInput; a duplicate is reported as a warning outcome with a nil
// error.
func (s Session) AddIP(name iplist.Name, ip string) (Outcome, error) {
	c := s.c
	ip = strings.TrimSpace(ip)

	c.mu.Lock()
	l := c.list(name)
	result := l.Add(ip)
	var msg string
	if result == iplist.Invalid {
		msg = s.p.Sprintf(i18n.MsgInvalidIP)
	} else {
		msg = s.p.Sprintf(listMessages[l.Name()][result], ip)
	}
	out := c.notify(kindFor(result), result.Severity(), msg)
	c.metrics.RecordListOp(string(l.Name()), string(result), l.Len())
	var snap *config.Config
	if result == iplist.Added {
		snap = c.configLocked()
	}
	c.mu.Unlock()

	if snap != nil {
		c.hub.EmitListChange(string(l.Name()), ip, string(result))
		c.record(context.Background(), SectionLists, snap)
	}
	if result == iplist.Invalid {
		c.logger.Debug("rejected list entry", "list", l.Name(), "ip", ip)
		return out, fmt.Errorf("%w: %q", ErrInvalidInput, ip)
	}
	return out, nil
}

// RemoveIP removes every occurrence of ip from the named list. Removing an
// absent address still reports removed.
func (s Session) RemoveIP(name iplist.Name, ip string) Outcome {
	c := s.c
	ip = strings.TrimSpace(ip)

	c.mu.Lock()
	l := c.list(name)
	had := l.Contains(ip)
	result := l.Remove(ip)
	out := c.notify(kindFor(result), result.Severity(), s.p.Sprintf(listMessages[l.Name()][result], ip))
	c.metrics.RecordListOp(string(l.Name()), string(result), l.Len())
	var snap *config.Config
	if had {
		snap = c.configLocked()
	}
	c.mu.Unlock()

	if snap != nil {
		c.hub.EmitListChange(string(l.Name()), ip, string(result))
		c.record(context.Background(), SectionLists, snap)
	}
	return out
}

// List returns a copy of the named list.
func (c *Console) List(name iplist.Name) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list(name).List()
}

// Verdict reports how an address would be treated by the lists. The
// blacklist wins when an address is on both.
func (c *Console) Verdict(ip string) Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.blacklist.Contains(ip):
		return VerdictBlocked
	case c.whitelist.Contains(ip):
		return VerdictAllowed
	}
	return VerdictInspected
}

// CommitSecurityToggles overwrites the four protection switches.
func (s Session) CommitSecurityToggles(t config.SecurityToggles) Outcome {
	c := s.c
	c.mu.Lock()
	c.cfg.CommitSecurityToggles(t)
	snap := c.configLocked()
	c.syncMetrics(snap)
	c.metrics.RecordCommit(SectionSecurity, nil)
	out := c.notify(KindSuccess, notification.SeveritySuccess, s.p.Sprintf(i18n.MsgSecuritySaved))
	c.mu.Unlock()

	c.logger.Info("security settings committed",
		"sql_injection", t.SQLInjection, "xss_protection", t.XSSProtection,
		"path_traversal", t.PathTraversal, "user_agent", t.UserAgent)
	c.record(context.Background(), SectionSecurity, snap)
	return out
}

// ResetSecurityToggles sets the security form back to all-on. Nothing is
// committed until the next CommitSecurityToggles.
func (s Session) ResetSecurityToggles() Outcome {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.ResetSecurityToggles()
	return c.notify(KindInfo, notification.SeverityInfo, s.p.Sprintf(i18n.MsgSecurityReset))
}

// PendingSecurityToggles returns the form defaults set by a reset, or nil.
func (c *Console) PendingSecurityToggles() *config.SecurityToggles {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.PendingSecurityToggles()
}

// CommitRateLimit parses and applies the rate-limit form. Malformed or
// negative numbers return ErrInvalidInput and leave the config untouched.
func (s Session) CommitRateLimit(form config.RateLimitForm) (Outcome, error) {
	c := s.c
	c.mu.Lock()
	_, err := c.cfg.CommitRateLimit(form)
	if err != nil {
		c.metrics.RecordCommit(SectionRateLimit, err)
		out := c.notify(KindInvalid, notification.SeverityError, s.p.Sprintf(i18n.MsgRateLimitInvalid, err.Error()))
		c.mu.Unlock()
		return out, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	snap := c.configLocked()
	c.syncMetrics(snap)
	c.metrics.RecordCommit(SectionRateLimit, nil)
	out := c.notify(KindSuccess, notification.SeveritySuccess, s.p.Sprintf(i18n.MsgRateLimitSaved))
	c.mu.Unlock()

	c.logger.Info("rate limit committed",
		"enabled", snap.RateLimit.Enabled,
		"requests_per_minute", snap.RateLimit.RequestsPerMinute,
		"burst", snap.RateLimit.Burst)
	c.record(context.Background(), SectionRateLimit, snap)
	return out, nil
}

// CommitSystem validates and applies the log level and default action.
func (s Session) CommitSystem(form config.SystemForm) (Outcome, error) {
	c := s.c
	c.mu.Lock()
	_, err := c.cfg.CommitSystem(form)
	if err != nil {
		c.metrics.RecordCommit(SectionSystem, err)
		out := c.notify(KindInvalid, notification.SeverityError, s.p.Sprintf(i18n.MsgSystemInvalid, err.Error()))
		c.mu.Unlock()
		return out, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	snap := c.configLocked()
	c.metrics.RecordCommit(SectionSystem, nil)
	out := c.notify(KindSuccess, notification.SeveritySuccess, s.p.Sprintf(i18n.MsgSystemSaved))
	c.mu.Unlock()

	if c.driveLogLevel {
		c.applyLogLevel(snap.LogLevel)
	}
	c.logger.Info("system settings committed", "log_level", snap.LogLevel, "action", snap.Action)
	c.record(context.Background(), SectionSystem, snap)
	return out, nil
}

// SetEnabled turns the WAF on or off.
func (s Session) SetEnabled(enabled bool) Outcome {
	c := s.c
	c.mu.Lock()
	c.cfg.SetEnabled(enabled)
	snap := c.configLocked()
	c.syncMetrics(snap)
	c.metrics.RecordCommit(SectionEnabled, nil)
	var out Outcome
	if enabled {
		out = c.notify(KindSuccess, notification.SeveritySuccess, s.p.Sprintf(i18n.MsgWAFEnabled))
	} else {
		out = c.notify(KindInfo, notification.SeverityInfo, s.p.Sprintf(i18n.MsgWAFDisabled))
	}
	c.mu.Unlock()

	c.logger.Info("WAF state changed", "enabled", enabled)
	c.record(context.Background(), SectionEnabled, snap)
	return out
}

// ReloadConfig replaces the whole configuration, lists included. It is what
// the file watcher calls after an edit on disk.
func (s Session) ReloadConfig(cfg *config.Config) (Outcome, error) {
	c := s.c
	c.mu.Lock()
	if err := c.cfg.Replace(cfg); err != nil {
		c.metrics.RecordCommit(SectionReload, err)
		c.mu.Unlock()
		c.logger.Warn("config reload rejected", "error", err)
		return Outcome{Kind: KindInvalid, Severity: notification.SeverityError, Message: err.Error()},
			fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	c.whitelist.Replace(cfg.IPWhitelist)
	c.blacklist.Replace(cfg.IPBlacklist)
	snap := c.configLocked()
	c.syncMetrics(snap)
	c.metrics.RecordCommit(SectionReload, nil)
	out := c.notify(KindInfo, notification.SeverityInfo, s.p.Sprintf(i18n.MsgConfigReloaded))
	c.mu.Unlock()

	if c.driveLogLevel {
		c.applyLogLevel(snap.LogLevel)
	}
	c.logger.Info("configuration reloaded",
		"whitelist", len(snap.IPWhitelist), "blacklist", len(snap.IPBlacklist))
	c.record(context.Background(), SectionReload, snap)
	return out, nil
}

// Config returns the committed configuration with the live lists.
func (c *Console) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configLocked()
}

// ExportConfig serializes the current configuration as hcl, json or yaml.
func (c *Console) ExportConfig(format string) ([]byte, error) {
	data, err := config.Export(c.Config(), format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return data, nil
}

// SetThreatLevel changes the dashboard threat indicator.
func (s Session) SetThreatLevel(level string) (Outcome, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.stats.SetThreatLevel(level); err != nil {
		out := c.notify(KindInvalid, notification.SeverityError, s.p.Sprintf(i18n.MsgThreatInvalid, level))
		return out, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	c.syncMetrics(c.cfg.Snapshot())
	return c.notify(KindSuccess, notification.SeveritySuccess, s.p.Sprintf(i18n.MsgThreatLevelSet, level)), nil
}

// RefreshLogs appends a "log refreshed" entry.
func (s Session) RefreshLogs() Outcome {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	e := eventlog.NewEntry(c.clock.Now(), eventlog.LevelInfo, eventlog.MsgRefreshed, eventlog.RefreshIP)
	c.appendLog(e)
	return c.notify(KindInfo, notification.SeverityInfo, s.p.Sprintf(i18n.MsgLogsRefreshed))
}

// ClearLogs empties the log viewer. Without confirmation nothing changes
// and ErrUnconfirmed is returned.
func (s Session) ClearLogs(confirmed bool) (Outcome, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if !confirmed {
		return c.unconfirmed(s.p, "clear logs")
	}
	c.logs.Clear()
	c.metrics.LogEntries.Set(0)
	c.hub.Publish(newLogClear())
	return c.notify(KindInfo, notification.SeverityInfo, s.p.Sprintf(i18n.MsgLogsCleared)), nil
}

// Logs returns a lazy view of the log entries at level, most recent first.
// An empty level or "all" yields every entry.
func (c *Console) Logs(level eventlog.Level) iter.Seq[eventlog.Entry] {
	return func(yield func(eventlog.Entry) bool) {
		c.mu.Lock()
		seq := c.logs.Filtered(level)
		var entries []eventlog.Entry
		for e := range seq {
			entries = append(entries, e)
		}
		c.mu.Unlock()
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Restart announces a restart now and its completion RestartDelay later.
// A restart requested while one is pending replaces it, so only the latest
// completion is announced.
func (s Session) Restart(confirmed bool) (Outcome, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if !confirmed {
		return c.unconfirmed(s.p, "restart")
	}
	if c.restarting && c.restartTask != "" {
		if err := c.sched.RemoveTask(c.restartTask); err == nil {
			c.logger.Debug("pending restart superseded", "task", c.restartTask)
		}
	}
	c.restarts++
	c.restarting = true
	id := fmt.Sprintf("restart-%d", c.restarts)
	task := scheduler.NewOneShotTask(id, "WAF Restart", c.clock.Now(), RestartDelay, func() { c.finishRestart(s.p) })
	if err := c.sched.AddTask(task); err != nil {
		c.restarting = false
		c.restartTask = ""
		c.logger.Error("failed to schedule restart", "error", err)
		return c.notify(KindInvalid, notification.SeverityError, err.Error()), err
	}
	c.restartTask = id
	c.hub.EmitRestart("started")
	c.logger.Info("restart requested", "task", id)
	return c.notify(KindInfo, notification.SeverityInfo, s.p.Sprintf(i18n.MsgRestarting)), nil
}

func (c *Console) finishRestart(p *message.Printer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restarting = false
	c.restartTask = ""
	c.notify(KindSuccess, notification.SeveritySuccess, p.Sprintf(i18n.MsgRestarted))
	c.hub.EmitRestart("completed")
	c.logger.Info("restart completed")
}

// unconfirmed reports an aborted destructive operation. Caller holds c.mu.
func (c *Console) unconfirmed(p *message.Printer, op string) (Outcome, error) {
	out := c.notify(KindUnconfirmed, notification.SeverityWarning, p.Sprintf(i18n.MsgUnconfirmed))
	return out, fmt.Errorf("%s: %w", op, ErrUnconfirmed)
}

// DismissNotification removes a toast before it expires.
func (c *Console) DismissNotification(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notes.Dismiss(id)
}
