package eventlog

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 9, 22, 10, 30, 0, 0, time.Local)

func entry(i int, level Level) Entry {
	return NewEntry(t0.Add(time.Duration(i)*time.Second), level, fmt.Sprintf("msg-%d", i), "")
}

func TestAppendMostRecentFirst(t *testing.T) {
	s := NewStore(DefaultCapacity)
	s.Append(entry(1, LevelInfo))
	s.Append(entry(2, LevelWarn))
	s.Append(entry(3, LevelError))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "msg-3", all[0].Message)
	assert.Equal(t, "msg-2", all[1].Message)
	assert.Equal(t, "msg-1", all[2].Message)
}

func TestAppendCapacity(t *testing.T) {
	s := NewStore(DefaultCapacity)
	for i := 1; i <= DefaultCapacity; i++ {
		assert.False(t, s.Append(entry(i, LevelInfo)), "no eviction before full (entry %d)", i)
		assert.LessOrEqual(t, s.Len(), DefaultCapacity)
	}

	// The 101st append evicts exactly one entry: the oldest.
	assert.True(t, s.Append(entry(101, LevelInfo)))
	assert.Equal(t, DefaultCapacity, s.Len())

	all := s.All()
	assert.Equal(t, "msg-101", all[0].Message)
	assert.Equal(t, "msg-2", all[len(all)-1].Message)
	for _, e := range all {
		assert.NotEqual(t, "msg-1", e.Message)
	}
}

func TestFilteredWarn(t *testing.T) {
	s := NewStore(10)
	s.Append(entry(1, LevelInfo))
	s.Append(entry(2, LevelWarn))
	s.Append(entry(3, LevelError))
	s.Append(entry(4, LevelWarn))

	got := slices.Collect(s.Filtered(LevelWarn))
	require.Len(t, got, 2)
	assert.Equal(t, "msg-4", got[0].Message)
	assert.Equal(t, "msg-2", got[1].Message)

	// Restartable: a second pass yields the same sequence.
	again := slices.Collect(s.Filtered(LevelWarn))
	assert.Equal(t, got, again)
}

func TestFilteredAll(t *testing.T) {
	s := NewStore(10)
	s.Append(entry(1, LevelInfo))
	s.Append(entry(2, LevelDebug))

	assert.Len(t, slices.Collect(s.Filtered(LevelAll)), 2)
	assert.Len(t, slices.Collect(s.Filtered("")), 2)
}

func TestFilteredEarlyStop(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 5; i++ {
		s.Append(entry(i, LevelInfo))
	}
	n := 0
	for range s.Filtered(LevelInfo) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestClear(t *testing.T) {
	s := NewStore(5)
	s.Append(entry(1, LevelInfo))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.All())

	s.Append(entry(2, LevelInfo))
	assert.Equal(t, "msg-2", s.All()[0].Message)
}

func TestSeed(t *testing.T) {
	s := NewStore(DefaultCapacity)
	Seed(s)
	all := s.All()
	require.Len(t, all, 5)
	assert.Equal(t, LevelDebug, all[0].Level)
	assert.Equal(t, "2024-09-22 10:34:33", all[0].Timestamp)
	assert.Equal(t, "WAF started", all[4].Message)
}

func TestParseLevel(t *testing.T) {
	for _, in := range []string{"", "all", "debug", "info", "warn", "error"} {
		_, err := ParseLevel(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestNewEntryTimestamp(t *testing.T) {
	e := NewEntry(t0, LevelInfo, MsgRefreshed, RefreshIP)
	assert.Equal(t, "2024-09-22 10:30:00", e.Timestamp)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "192.168.1.1", e.IP)
}
