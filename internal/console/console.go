// Package console is the single owner of the WAF administration state:
// configuration, IP lists, the log viewer, traffic stats and notifications.
//
// Every user operation and every simulation tick runs under one mutex, so
// each commits atomically. Transports (HTTP API, TUI, SSH, CLI) drive a
// Console and read Snapshots; they never touch the stores directly.
package console

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/config"
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/iplist"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/metrics"
	"grimm.is/iwaf/internal/notification"
	"grimm.is/iwaf/internal/scheduler"
	"grimm.is/iwaf/internal/state"
	"grimm.is/iwaf/internal/stats"
)

// Random is the injected randomness behind the simulation.
// *math/rand/v2.Rand satisfies it.
type Random = stats.Random

// Simulation parameters.
const (
	LogProbability = 0.4
	RestartDelay   = 2 * time.Second
)

// Options configures a Console. Zero values pick production defaults.
type Options struct {
	Config      *config.Config
	Clock       clock.Clock
	Random      Random
	Hub         *events.Hub
	Revisions   *state.RevisionStore
	Logger      *logging.Logger
	Printer     *message.Printer
	Metrics     *metrics.Registry
	LogCapacity int

	// StatsInterval and LogsInterval override the simulation periods.
	StatsInterval time.Duration
	LogsInterval  time.Duration

	// SkipSeedLogs starts with an empty log viewer.
	SkipSeedLogs bool

	// DriveLogLevel applies log_level to Logger on each system commit and
	// reload. The level Logger starts with is left alone.
	DriveLogLevel bool
}

// Console owns every store and serializes access to them.
type Console struct {
	mu sync.Mutex

	cfg       *config.Store
	whitelist *iplist.List
	blacklist *iplist.List
	logs      *eventlog.Store
	stats     *stats.Stats
	notes     *notification.Emitter
	sched     *scheduler.Scheduler

	clock         clock.Clock
	rnd           Random
	hub           *events.Hub
	revisions     *state.RevisionStore
	logger        *logging.Logger
	printer       *message.Printer
	metrics       *metrics.Registry
	driveLogLevel bool

	startedAt  time.Time
	restarts    int
	restarting  bool
	restartTask string
}

// New builds a console from opts. The initial configuration must validate.
func New(opts Options) (*Console, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, errs)
	}

	clk := clock.Or(opts.Clock)
	rnd := opts.Random
	if rnd == nil {
		seed := uint64(clk.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>32|1))
	}
	hub := opts.Hub
	if hub == nil {
		hub = events.NewHub()
	}
	hub.SetClock(clk.Now)
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	printer := opts.Printer
	if printer == nil {
		printer = i18n.NewPrinter(i18n.DefaultLang)
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.Get()
	}

	c := &Console{
		cfg:           config.NewStore(cfg),
		whitelist:     iplist.New(iplist.Whitelist, cfg.IPWhitelist...),
		blacklist:     iplist.New(iplist.Blacklist, cfg.IPBlacklist...),
		logs:          eventlog.NewStore(opts.LogCapacity),
		stats:         stats.New(stats.Seed),
		clock:         clk,
		rnd:           rnd,
		hub:           hub,
		revisions:     opts.Revisions,
		logger:        logger.WithComponent("console"),
		printer:       printer,
		metrics:       reg,
		driveLogLevel: opts.DriveLogLevel,
		startedAt:     clk.Now(),
	}
	c.notes = notification.NewEmitter(clk, hub, logger.WithComponent("notification"))
	c.sched = scheduler.New(logger, scheduler.WithClock(clk))

	if !opts.SkipSeedLogs {
		eventlog.Seed(c.logs)
	}

	statsEvery := opts.StatsInterval
	if statsEvery <= 0 {
		statsEvery = scheduler.StatsInterval
	}
	logsEvery := opts.LogsInterval
	if logsEvery <= 0 {
		logsEvery = scheduler.LogsInterval
	}
	registry := &scheduler.TaskRegistry{TickStats: c.TickStats, TickLogs: c.TickLogs}
	if err := c.sched.AddTask(scheduler.NewStatsTask(registry, statsEvery)); err != nil {
		return nil, err
	}
	if err := c.sched.AddTask(scheduler.NewLogTask(registry, logsEvery)); err != nil {
		return nil, err
	}

	c.syncMetrics(c.cfg.Snapshot())
	c.record(context.Background(), "initial", c.configLocked())
	return c, nil
}

// Start runs the simulation on a real ticker until Stop.
func (c *Console) Start() {
	c.sched.Start()
}

// Stop halts the simulation.
func (c *Console) Stop() {
	c.sched.Stop()
}

// RunDue synchronously runs every simulation or one-shot task due at now.
func (c *Console) RunDue(now time.Time) int {
	return c.sched.RunDue(now)
}

// Tasks reports the scheduler's task status.
func (c *Console) Tasks() []scheduler.TaskStatus {
	return c.sched.GetStatus()
}

// Hub returns the event hub changes are published on.
func (c *Console) Hub() *events.Hub {
	return c.hub
}

// Revisions returns the revision store, or nil when history is disabled.
func (c *Console) Revisions() *state.RevisionStore {
	return c.revisions
}

// Printer returns the console's message printer.
func (c *Console) Printer() *message.Printer {
	return c.printer
}

// Clock returns the console's time source.
func (c *Console) Clock() clock.Clock {
	return c.clock
}

// notify pushes a notification and builds the matching outcome.
// Caller holds c.mu.
func (c *Console) notify(kind Kind, severity, msg string) Outcome {
	n := c.notes.Notify(msg, severity)
	c.metrics.Notifications.WithLabelValues(n.Severity).Inc()
	return Outcome{Kind: kind, Severity: n.Severity, Message: msg}
}

func (c *Console) list(name iplist.Name) *iplist.List {
	if name == iplist.Blacklist {
		return c.blacklist
	}
	return c.whitelist
}

// configLocked merges the committed record with the live lists.
func (c *Console) configLocked() *config.Config {
	cfg := c.cfg.Snapshot()
	cfg.IPWhitelist = c.whitelist.List()
	cfg.IPBlacklist = c.blacklist.List()
	return cfg
}

// record writes a revision and publishes the change. Called without c.mu.
func (c *Console) record(ctx context.Context, section string, cfg *config.Config) {
	var id int64
	if c.revisions != nil {
		rev, err := c.revisions.Record(ctx, section, cfg)
		if err != nil {
			c.logger.Warn("failed to record config revision", "section", section, "error", err)
		} else {
			id = rev.ID
		}
	}
	if section != "initial" {
		c.hub.EmitConfigChange(section, id)
	}
}

func (c *Console) syncMetrics(cfg *config.Config) {
	c.metrics.UpdateConfig(cfg.Enabled, map[string]bool{
		"sql_injection":  cfg.SQLInjection.Enabled,
		"xss_protection": cfg.XSSProtection.Enabled,
		"path_traversal": cfg.PathTraversal.Enabled,
		"user_agent":     cfg.UserAgent.Enabled,
	}, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	c.metrics.ListEntries.WithLabelValues(string(iplist.Whitelist)).Set(float64(c.whitelist.Len()))
	c.metrics.ListEntries.WithLabelValues(string(iplist.Blacklist)).Set(float64(c.blacklist.Len()))
	s := c.stats.Snapshot()
	c.metrics.UpdateStats(s.TotalRequests, s.BlockedRequests, s.SafeRequests, string(s.ThreatLevel))
	c.metrics.LogEntries.Set(float64(c.logs.Len()))
}

func (c *Console) applyLogLevel(level string) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return
	}
	c.logger.SetLevel(lvl)
}
