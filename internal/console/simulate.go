package console

import (
	"grimm.is/iwaf/internal/eventlog"
	"grimm.is/iwaf/internal/events"
	"grimm.is/iwaf/internal/stats"
)

// TickStats advances the simulated request counters by one step.
func (c *Console) TickStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats.Tick(c.rnd)
	c.metrics.UpdateStats(s.TotalRequests, s.BlockedRequests, s.SafeRequests, string(s.ThreatLevel))
	c.hub.Publish(events.Event{Type: events.EventStatsUpdate, Source: "simulator", Data: s})
}

// TickLogs appends a synthetic traffic entry with probability LogProbability.
func (c *Console) TickLogs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rnd.Float64() >= LogProbability {
		return
	}
	tmpl := eventlog.SimulatedCatalog[c.rnd.IntN(len(eventlog.SimulatedCatalog))]
	ip := eventlog.SimulatedIP(stats.RandInt(c.rnd, 1, 254))
	c.appendLog(eventlog.NewEntry(c.clock.Now(), tmpl.Level, tmpl.Message, ip))
}

// appendLog stores e and publishes it. Caller holds c.mu.
func (c *Console) appendLog(e eventlog.Entry) {
	if c.logs.Append(e) {
		c.logger.Debug("log viewer full, evicted oldest entry")
	}
	c.metrics.LogEntries.Set(float64(c.logs.Len()))
	c.hub.Publish(events.Event{Type: events.EventLogAppend, Source: "console", Data: e})
}

func newLogClear() events.Event {
	return events.Event{Type: events.EventLogClear, Source: "console"}
}
