// Package eventlog holds the console's log viewer: a bounded ring of entries
// kept most-recent-first.
package eventlog

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries the viewer keeps.
const DefaultCapacity = 100

// TimestampFormat is how entry timestamps are rendered.
const TimestampFormat = "2006-01-02 15:04:05"

// Level is an entry severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"

	// LevelAll is the filter value that matches every entry.
	LevelAll Level = "all"
)

// Levels lists the entry levels in display order.
var Levels = []Level{LevelInfo, LevelWarn, LevelError, LevelDebug}

// ParseLevel accepts an entry level or the "all" filter. The empty string
// is treated as "all".
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "", LevelAll:
		return LevelAll, nil
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Entry is one immutable log line.
type Entry struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Timestamp string    `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	IP        string    `json:"ip,omitempty"`
}

// NewEntry stamps a new entry at t.
func NewEntry(t time.Time, level Level, message, ip string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Time:      t,
		Timestamp: t.Local().Format(TimestampFormat),
		Level:     level,
		Message:   message,
		IP:        ip,
	}
}

// Store is a thread-safe ring buffer. Append puts an entry at the front; once
// the buffer is full the oldest entry (the tail) is evicted.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	head    int // next write position
	count   int
}

// NewStore creates a store holding at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries: make([]Entry, capacity),
		size:    capacity,
	}
}

// Append inserts e as the most recent entry and reports whether an older
// entry was evicted to make room.
func (s *Store) Append(e Entry) (evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted = s.count == s.size
	s.entries[s.head] = e
	s.head = (s.head + 1) % s.size
	if s.count < s.size {
		s.count++
	}
	return evicted
}

// at returns the i-th most recent entry. Caller holds the lock.
func (s *Store) at(i int) Entry {
	return s.entries[(s.head-1-i+s.size)%s.size]
}

// All returns every entry, most recent first.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Entry, s.count)
	for i := 0; i < s.count; i++ {
		result[i] = s.at(i)
	}
	return result
}

// Filtered returns a sequence of the entries at level, most recent first.
// LevelAll (or "") yields everything. Each range over the sequence reads the
// store afresh, so the sequence can be iterated any number of times.
func (s *Store) Filtered(level Level) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range s.All() {
			if level != LevelAll && level != "" && e.Level != level {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Capacity returns the maximum number of entries held.
func (s *Store) Capacity() int {
	return s.size
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.head = 0
	s.count = 0
}
