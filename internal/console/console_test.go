package console

import (
	"context"
	"io"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/notification"
	"grimm.is/iwaf/internal/scheduler"
	"grimm.is/iwaf/internal/state"
)

var start = time.Date(2024, 9, 22, 10, 35, 0, 0, time.UTC)

// scripted replays fixed draws, then falls back to values that never
// trigger a probabilistic branch.
type scripted struct {
	ints   []int
	floats []float64
}

func (s *scripted) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.99
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard})
}

func newTestConsole(t *testing.T, mutate ...func(*Options)) (*Console, *clock.Mock) {
	t.Helper()
	mc := clock.NewMock(start)
	opts := Options{
		Clock:  mc,
		Random: rand.New(rand.NewPCG(1, 2)),
		Hub:    events.NewHub(),
		Logger: quietLogger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c, mc
}

func TestNew_Seed(t *testing.T) {
	c, _ := newTestConsole(t)
	snap := c.Snapshot()

	assert.True(t, snap.Config.Enabled)
	assert.Equal(t, []string{"127.0.0.1", "::1"}, snap.Config.IPWhitelist)
	assert.Equal(t, []string{"192.168.1.100"}, snap.Config.IPBlacklist)
	assert.Equal(t, 1245, snap.Stats.TotalRequests)
	assert.Equal(t, 89, snap.Stats.BlockedRequests)
	assert.Equal(t, 1156, snap.Stats.SafeRequests)
	assert.Len(t, snap.Logs, 5)
	assert.Empty(t, snap.Notifications)
	assert.Zero(t, snap.Uptime)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.IPWhitelist = append(cfg.IPWhitelist, "999.1.1.1")
	_, err := New(Options{Config: cfg, Logger: quietLogger()})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddIP_Scenario(t *testing.T) {
	c, _ := newTestConsole(t)

	out, err := c.AddWhitelistIP(" 192.168.1.100 ")
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, out.Kind)
	assert.Equal(t, notification.SeveritySuccess, out.Severity)
	assert.Equal(t, "IP 192.168.1.100 added to whitelist", out.Message)

	out, err = c.AddWhitelistIP("192.168.1.100")
	require.NoError(t, err)
	assert.Equal(t, KindDuplicate, out.Kind)
	assert.Equal(t, notification.SeverityWarning, out.Severity)
	assert.ErrorIs(t, out.Err(), ErrDuplicate)

	out, err = c.AddWhitelistIP("abc")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindInvalid, out.Kind)
	assert.Equal(t, notification.SeverityError, out.Severity)

	assert.Equal(t, []string{"127.0.0.1", "::1", "192.168.1.100"}, c.List(iplist.Whitelist))

	notes := c.Notifications()
	require.Len(t, notes, 3)
	assert.Equal(t, []string{"success", "warning", "error"}, []string{
		notes[0].Severity, notes[1].Severity, notes[2].Severity,
	})
}

func TestRemoveIP_Idempotent(t *testing.T) {
	c, _ := newTestConsole(t)
	_, err := c.AddBlacklistIP("10.0.0.1")
	require.NoError(t, err)

	out := c.RemoveIP(iplist.Blacklist, "10.0.0.1")
	assert.Equal(t, KindRemoved, out.Kind)
	assert.Equal(t, notification.SeverityInfo, out.Severity)
	assert.Equal(t, "IP 10.0.0.1 removed from blacklist", out.Message)
	assert.Equal(t, []string{"192.168.1.100"}, c.List(iplist.Blacklist))

	out = c.RemoveIP(iplist.Blacklist, "10.0.0.1")
	assert.Equal(t, KindRemoved, out.Kind)
	assert.Nil(t, out.Err())
}

func TestVerdict_BlacklistWins(t *testing.T) {
	c, _ := newTestConsole(t)
	_, err := c.AddBlacklistIP("127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, VerdictBlocked, c.Verdict("127.0.0.1"))
	assert.Equal(t, VerdictAllowed, c.Verdict("::1"))
	assert.Equal(t, VerdictInspected, c.Verdict("8.8.8.8"))
}

func TestCommitSecurityToggles(t *testing.T) {
	c, _ := newTestConsole(t)
	out := c.CommitSecurityToggles(config.SecurityToggles{SQLInjection: true, PathTraversal: true})
	assert.Equal(t, KindSuccess, out.Kind)

	cfg := c.Config()
	assert.True(t, cfg.SQLInjection.Enabled)
	assert.False(t, cfg.XSSProtection.Enabled)
	assert.True(t, cfg.PathTraversal.Enabled)
	assert.False(t, cfg.UserAgent.Enabled)
}

func TestResetSecurityToggles_PendingOnly(t *testing.T) {
	c, _ := newTestConsole(t)
	c.CommitSecurityToggles(config.SecurityToggles{})

	out := c.ResetSecurityToggles()
	assert.Equal(t, KindInfo, out.Kind)
	assert.Equal(t, notification.SeverityInfo, out.Severity)

	pending := c.PendingSecurityToggles()
	require.NotNil(t, pending)
	assert.Equal(t, config.AllOn(), *pending)
	assert.False(t, c.Config().SQLInjection.Enabled, "reset must not commit")

	c.CommitSecurityToggles(*pending)
	assert.Nil(t, c.PendingSecurityToggles())
	assert.True(t, c.Config().SQLInjection.Enabled)
}

func TestCommitRateLimit(t *testing.T) {
	c, _ := newTestConsole(t)
	before := c.Config().RateLimit

	for _, form := range []config.RateLimitForm{
		{Enabled: true, RequestsPerMinute: "abc", Burst: "10"},
		{Enabled: true, RequestsPerMinute: "100", Burst: "-1"},
		{Enabled: false, RequestsPerMinute: "", Burst: "5"},
	} {
		out, err := c.CommitRateLimit(form)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, config.ErrInvalid)
		assert.Equal(t, KindInvalid, out.Kind)
		assert.Equal(t, notification.SeverityError, out.Severity)
		assert.Equal(t, before, c.Config().RateLimit, "failed commit must not write")
	}

	out, err := c.CommitRateLimit(config.RateLimitForm{Enabled: true, RequestsPerMinute: "200", Burst: "20"})
	require.NoError(t, err)
	assert.Equal(t, "rate limit settings saved", out.Message)
	assert.Equal(t, config.RateLimitConfig{Enabled: true, RequestsPerMinute: 200, Burst: 20}, c.Config().RateLimit)
}

func TestCommitSystem(t *testing.T) {
	logger := quietLogger()
	c, _ := newTestConsole(t, func(o *Options) {
		o.Logger = logger
		o.DriveLogLevel = true
	})

	_, err := c.CommitSystem(config.SystemForm{LogLevel: "verbose", Action: "block"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = c.CommitSystem(config.SystemForm{LogLevel: "info", Action: "drop"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, config.LogLevelInfo, c.Config().LogLevel)

	out, err := c.CommitSystem(config.SystemForm{LogLevel: "debug", Action: "log-only"})
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, out.Kind)
	cfg := c.Config()
	assert.Equal(t, config.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, config.ActionLogOnly, cfg.Action)
	assert.Equal(t, logging.LevelDebug, logger.GetLevel())
}

func TestSetEnabled(t *testing.T) {
	c, _ := newTestConsole(t)
	out := c.SetEnabled(false)
	assert.Equal(t, KindInfo, out.Kind)
	assert.False(t, c.Config().Enabled)

	out = c.SetEnabled(true)
	assert.Equal(t, KindSuccess, out.Kind)
	assert.True(t, c.Config().Enabled)
}

func TestSetThreatLevel(t *testing.T) {
	c, _ := newTestConsole(t)
	_, err := c.SetThreatLevel("extreme")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = c.SetThreatLevel("high")
	require.NoError(t, err)
	assert.Equal(t, "high", string(c.Stats().ThreatLevel))
}

func TestRefreshLogs(t *testing.T) {
	c, mc := newTestConsole(t)
	mc.Advance(time.Minute)

	out := c.RefreshLogs()
	assert.Equal(t, KindInfo, out.Kind)

	first := c.Snapshot().Logs[0]
	assert.Equal(t, eventlog.LevelInfo, first.Level)
	assert.Equal(t, eventlog.MsgRefreshed, first.Message)
	assert.Equal(t, "192.168.1.1", first.IP)
	assert.Equal(t, mc.Now(), first.Time)
}

func TestLogs_CapacityAndOrder(t *testing.T) {
	c, mc := newTestConsole(t, func(o *Options) { o.SkipSeedLogs = true })
	for range 101 {
		mc.Advance(time.Second)
		c.RefreshLogs()
	}
	logs := c.Snapshot().Logs
	require.Len(t, logs, eventlog.DefaultCapacity)
	assert.Equal(t, mc.Now(), logs[0].Time)
	for i := 1; i < len(logs); i++ {
		assert.True(t, logs[i-1].Time.After(logs[i].Time))
	}
}

func TestLogs_Filter(t *testing.T) {
	c, _ := newTestConsole(t)
	var warn []eventlog.Entry
	for e := range c.Logs(eventlog.LevelWarn) {
		warn = append(warn, e)
	}
	require.Len(t, warn, 1)
	for _, e := range warn {
		assert.Equal(t, eventlog.LevelWarn, e.Level)
	}

	all := slices.Collect(c.Logs(eventlog.LevelAll))
	assert.Len(t, all, 5)
	assert.Equal(t, all, slices.Collect(c.Logs("")))
}

func TestClearLogs_RequiresConfirmation(t *testing.T) {
	c, _ := newTestConsole(t)

	out, err := c.ClearLogs(false)
	assert.ErrorIs(t, err, ErrUnconfirmed)
	assert.Equal(t, KindUnconfirmed, out.Kind)
	assert.Len(t, c.Snapshot().Logs, 5)

	out, err = c.ClearLogs(true)
	require.NoError(t, err)
	assert.Equal(t, KindInfo, out.Kind)
	assert.Equal(t, notification.SeverityInfo, out.Severity)
	assert.Empty(t, c.Snapshot().Logs)
}

func TestRestart(t *testing.T) {
	c, mc := newTestConsole(t, func(o *Options) {
		o.StatsInterval = time.Hour
		o.LogsInterval = time.Hour
	})

	_, err := c.Restart(false)
	assert.ErrorIs(t, err, ErrUnconfirmed)
	assert.False(t, c.Snapshot().Restarting)

	out, err := c.Restart(true)
	require.NoError(t, err)
	assert.Equal(t, KindInfo, out.Kind)
	assert.Equal(t, "restarting WAF...", out.Message)
	assert.True(t, c.Snapshot().Restarting)

	assert.Zero(t, c.RunDue(mc.Advance(time.Second)))
	assert.Equal(t, 1, c.RunDue(mc.Advance(time.Second)))

	snap := c.Snapshot()
	assert.False(t, snap.Restarting)
	last := snap.Notifications[len(snap.Notifications)-1]
	assert.Equal(t, notification.SeveritySuccess, last.Severity)
	assert.Equal(t, "WAF restarted", last.Message)

	// The one-shot task is gone.
	assert.Zero(t, c.RunDue(mc.Advance(10*time.Second)))
}

func TestNotificationsExpire(t *testing.T) {
	c, mc := newTestConsole(t)
	c.SetEnabled(true)

	mc.Advance(2900 * time.Millisecond)
	notes := c.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notification.PhaseVisible, notes[0].Phase)

	mc.Advance(200 * time.Millisecond)
	notes = c.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, notification.PhaseLeaving, notes[0].Phase)

	mc.Advance(300 * time.Millisecond)
	assert.Empty(t, c.Notifications())
}

func TestSimulation_Scripted(t *testing.T) {
	rnd := &scripted{
		// stats: IntN(10)=4 -> +5 total; IntN(3)=1 -> +2 blocked
		// logs: IntN(3)=1 -> warn template; IntN(254)=9 -> host 10
		ints:   []int{4, 1, 1, 9},
		floats: []float64{0.1, 0.2},
	}
	c, mc := newTestConsole(t, func(o *Options) {
		o.Random = rnd
		o.LogsInterval = time.Hour
	})

	assert.Zero(t, c.RunDue(mc.Advance(29*time.Second)))
	assert.Equal(t, 1, c.RunDue(mc.Advance(time.Second)))

	s := c.Stats()
	assert.Equal(t, 1250, s.TotalRequests)
	assert.Equal(t, 91, s.BlockedRequests)
	assert.Equal(t, 1159, s.SafeRequests)

	c.TickLogs()
	first := c.Snapshot().Logs[0]
	assert.Equal(t, eventlog.LevelWarn, first.Level)
	assert.Equal(t, eventlog.MsgRateLimitReached, first.Message)
	assert.Equal(t, "192.168.1.10", first.IP)

	// Float64 falls back to 0.99, above the log probability.
	before := len(c.Snapshot().Logs)
	c.TickLogs()
	assert.Len(t, c.Snapshot().Logs, before)
}

func TestSimulation_Invariants(t *testing.T) {
	c, mc := newTestConsole(t)
	prev := c.Stats()
	for range 200 {
		c.RunDue(mc.Advance(15 * time.Second))
		s := c.Stats()
		assert.Equal(t, s.TotalRequests-s.BlockedRequests, s.SafeRequests)
		assert.GreaterOrEqual(t, s.TotalRequests, prev.TotalRequests)
		assert.GreaterOrEqual(t, s.BlockedRequests, prev.BlockedRequests)
		assert.Equal(t, prev.ThreatLevel, s.ThreatLevel)
		prev = s
	}
	logs := c.Snapshot().Logs
	assert.LessOrEqual(t, len(logs), eventlog.DefaultCapacity)
	for _, e := range logs {
		assert.NotEmpty(t, e.ID)
	}
}

func TestEventsPublished(t *testing.T) {
	c, _ := newTestConsole(t)
	ch := c.Hub().Subscribe(16, events.EventListChange, events.EventConfigChange, events.EventNotification)

	_, err := c.AddWhitelistIP("10.1.1.1")
	require.NoError(t, err)

	var got []events.EventType
	for range 3 {
		select {
		case e := <-ch:
			got = append(got, e.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.ElementsMatch(t, []events.EventType{
		events.EventNotification, events.EventListChange, events.EventConfigChange,
	}, got)
}

func TestRevisionsRecorded(t *testing.T) {
	revs, err := state.Open(state.Options{Path: state.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { revs.Close() })

	c, _ := newTestConsole(t, func(o *Options) { o.Revisions = revs })
	_, err = c.AddBlacklistIP("10.9.9.9")
	require.NoError(t, err)
	_, err = c.CommitRateLimit(config.RateLimitForm{RequestsPerMinute: "x", Burst: "1"})
	require.Error(t, err)

	ctx := context.Background()
	n, err := revs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "initial plus one list change; failed commits are not recorded")

	latest, err := revs.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, SectionLists, latest.Section)
	assert.Contains(t, latest.Config.IPBlacklist, "10.9.9.9")
}

func TestReloadConfig(t *testing.T) {
	c, _ := newTestConsole(t)
	c.ResetSecurityToggles()

	next := config.Default()
	next.IPBlacklist = []string{"203.0.113.7"}
	next.Action = config.ActionLogOnly
	out, err := c.ReloadConfig(next)
	require.NoError(t, err)
	assert.Equal(t, KindInfo, out.Kind)
	assert.Equal(t, []string{"203.0.113.7"}, c.List(iplist.Blacklist))
	assert.Equal(t, config.ActionLogOnly, c.Config().Action)
	assert.Nil(t, c.PendingSecurityToggles())

	bad := config.Default()
	bad.LogLevel = "loud"
	_, err = c.ReloadConfig(bad)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, config.ActionLogOnly, c.Config().Action)
}

func TestExportConfig(t *testing.T) {
	c, _ := newTestConsole(t)
	data, err := c.ExportConfig("hcl")
	require.NoError(t, err)
	assert.Contains(t, string(data), "ip_whitelist")

	_, err = c.ExportConfig("toml")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLocalizedMessages(t *testing.T) {
	c, _ := newTestConsole(t, func(o *Options) {
		o.Printer = i18n.NewPrinter(language.SimplifiedChinese)
	})
	out, err := c.AddWhitelistIP("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "IP 10.0.0.5 已添加到白名单", out.Message)
}

func TestSession_Localized(t *testing.T) {
	c, mc := newTestConsole(t, func(o *Options) {
		o.StatsInterval = time.Hour
		o.LogsInterval = time.Hour
	})
	zh := c.For(i18n.NewPrinter(language.SimplifiedChinese))

	out, err := zh.AddWhitelistIP("10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, "IP 10.0.0.9 已添加到白名单", out.Message)
	notes := c.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, out.Message, notes[len(notes)-1].Message)

	out, err = zh.ClearLogs(false)
	assert.ErrorIs(t, err, ErrUnconfirmed)
	assert.Equal(t, zh.Printer().Sprintf(i18n.MsgUnconfirmed), out.Message)

	_, err = zh.Restart(true)
	require.NoError(t, err)
	c.RunDue(mc.Advance(RestartDelay))
	notes = c.Notifications()
	assert.Equal(t, zh.Printer().Sprintf(i18n.MsgRestarted), notes[len(notes)-1].Message)

	out, err = c.AddWhitelistIP("10.0.0.10")
	require.NoError(t, err)
	assert.Equal(t, "IP 10.0.0.10 added to whitelist", out.Message, "console default stays English")
}

func TestListChange_OnlyWhenChanged(t *testing.T) {
	c, _ := newTestConsole(t)
	ch := c.Hub().Subscribe(16, events.EventListChange)

	_, err := c.AddWhitelistIP("127.0.0.1")
	require.NoError(t, err)
	_, err = c.AddWhitelistIP("not-an-ip")
	require.Error(t, err)
	c.RemoveIP(iplist.Blacklist, "10.20.30.40")

	_, err = c.AddBlacklistIP("10.20.30.40")
	require.NoError(t, err)

	select {
	case e := <-ch:
		data, ok := e.Data.(events.ListChangeData)
		require.True(t, ok)
		assert.Equal(t, "10.20.30.40", data.IP)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for list change")
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestRestart_Supersedes(t *testing.T) {
	c, mc := newTestConsole(t, func(o *Options) {
		o.StatsInterval = time.Hour
		o.LogsInterval = time.Hour
	})

	_, err := c.Restart(true)
	require.NoError(t, err)
	mc.Advance(time.Second)
	_, err = c.Restart(true)
	require.NoError(t, err)

	// The first restart would have completed here.
	assert.Zero(t, c.RunDue(mc.Advance(time.Second)))
	assert.True(t, c.Snapshot().Restarting)

	assert.Equal(t, 1, c.RunDue(mc.Advance(time.Second)))
	assert.False(t, c.Snapshot().Restarting)

	var completed int
	for _, n := range c.Notifications() {
		if n.Message == "WAF restarted" {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestTaskControls(t *testing.T) {
	c, mc := newTestConsole(t)
	before := c.Stats().TotalRequests

	require.NoError(t, c.RunTask(scheduler.StatsTaskID))
	assert.Greater(t, c.Stats().TotalRequests, before)
	st, ok := c.Task(scheduler.StatsTaskID)
	require.True(t, ok)
	assert.EqualValues(t, 1, st.RunCount)

	require.NoError(t, c.EnableTask(scheduler.StatsTaskID, false))
	total := c.Stats().TotalRequests
	c.RunDue(mc.Advance(time.Minute))
	assert.Equal(t, total, c.Stats().TotalRequests)
	st, _ = c.Task(scheduler.StatsTaskID)
	assert.False(t, st.Enabled)

	require.NoError(t, c.EnableTask(scheduler.StatsTaskID, true))
	c.RunDue(mc.Advance(scheduler.StatsInterval))
	assert.Greater(t, c.Stats().TotalRequests, total)

	assert.ErrorIs(t, c.RunTask("nope"), scheduler.ErrTaskNotFound)
	assert.ErrorIs(t, c.EnableTask("nope", true), scheduler.ErrTaskNotFound)
	_, ok = c.Task("nope")
	assert.False(t, ok)
	assert.False(t, c.SimulationRunning())
}

func TestNew_KeepsLoggerLevel(t *testing.T) {
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: io.Discard})
	newTestConsole(t, func(o *Options) {
		o.Logger = logger
		o.DriveLogLevel = true
	})
	assert.Equal(t, logging.LevelDebug, logger.GetLevel())
}
