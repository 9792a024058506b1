// Package stats tracks the simulated request counters shown on the dashboard.
package stats

import (
	"fmt"
	"sync"
)

// ThreatLevel is the dashboard threat indicator.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ParseThreatLevel validates s.
func ParseThreatLevel(s string) (ThreatLevel, error) {
	switch ThreatLevel(s) {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return ThreatLevel(s), nil
	}
	return "", fmt.Errorf("unknown threat level %q", s)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalRequests   int         `json:"total_requests"`
	BlockedRequests int         `json:"blocked_requests"`
	SafeRequests    int         `json:"safe_requests"`
	ThreatLevel     ThreatLevel `json:"threat_level"`
}

// Seed values shown on a fresh console.
var Seed = Snapshot{
	TotalRequests:   1245,
	BlockedRequests: 89,
	SafeRequests:    1156,
	ThreatLevel:     ThreatLow,
}

// Random is the randomness the simulator draws from. *math/rand/v2.Rand
// satisfies it.
type Random interface {
	IntN(n int) int
	Float64() float64
}

// BlockProbability is the chance a tick also records blocked requests.
const BlockProbability = 0.3

// Stats holds the counters. SafeRequests is always TotalRequests minus
// BlockedRequests.
type Stats struct {
	mu   sync.RWMutex
	snap Snapshot
}

// New returns counters initialised from seed.
func New(seed Snapshot) *Stats {
	s := &Stats{snap: seed}
	s.recompute()
	return s
}

func (s *Stats) recompute() {
	s.snap.SafeRequests = s.snap.TotalRequests - s.snap.BlockedRequests
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetThreatLevel changes the threat indicator.
func (s *Stats) SetThreatLevel(level string) error {
	tl, err := ParseThreatLevel(level)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.ThreatLevel = tl
	s.mu.Unlock()
	return nil
}

// Tick advances the simulation by one step: 1-10 new requests, and with
// probability BlockProbability 1-3 of them blocked.
func (s *Stats) Tick(r Random) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.TotalRequests += randInt(r, 1, 10)
	s.recompute()

	if r.Float64() < BlockProbability {
		s.snap.BlockedRequests += randInt(r, 1, 3)
		s.recompute()
	}
	return s.snap
}

// randInt returns a uniform integer in [lo, hi].
func randInt(r Random, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

// RandInt is exported for the log simulator.
func RandInt(r Random, lo, hi int) int {
	return randInt(r, lo, hi)
}
