package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore(nil)
	snap := s.Snapshot()
	snap.Enabled = false
	snap.IPWhitelist[0] = "1.1.1.1"

	again := s.Snapshot()
	assert.True(t, again.Enabled)
	assert.Equal(t, "127.0.0.1", again.IPWhitelist[0])
}

func TestStore_CommitSecurityToggles(t *testing.T) {
	s := NewStore(nil)
	cfg := s.CommitSecurityToggles(SecurityToggles{SQLInjection: true})
	assert.Equal(t, SecurityToggles{SQLInjection: true}, cfg.Toggles())
	assert.Equal(t, cfg.Toggles(), s.Snapshot().Toggles())
}

func TestStore_ResetIsPendingOnly(t *testing.T) {
	s := NewStore(nil)
	s.CommitSecurityToggles(SecurityToggles{})
	assert.Nil(t, s.PendingSecurityToggles())

	defaults := s.ResetSecurityToggles()
	assert.Equal(t, AllOn(), defaults)

	// Committed config is untouched by a reset.
	assert.Equal(t, SecurityToggles{}, s.Snapshot().Toggles())
	pending := s.PendingSecurityToggles()
	require.NotNil(t, pending)
	assert.Equal(t, AllOn(), *pending)

	// The next commit persists and clears the pending state.
	s.CommitSecurityToggles(*pending)
	assert.Equal(t, AllOn(), s.Snapshot().Toggles())
	assert.Nil(t, s.PendingSecurityToggles())
}

func TestStore_CommitRateLimit(t *testing.T) {
	s := NewStore(nil)

	cfg, err := s.CommitRateLimit(RateLimitForm{Enabled: false, RequestsPerMinute: "200", Burst: "0"})
	require.NoError(t, err)
	assert.Equal(t, RateLimitConfig{RequestsPerMinute: 200}, cfg.RateLimit)

	for _, form := range []RateLimitForm{
		{Enabled: true, RequestsPerMinute: "abc", Burst: "5"},
		{Enabled: true, RequestsPerMinute: "10", Burst: "-1"},
		{Enabled: true, RequestsPerMinute: "", Burst: "5"},
		{Enabled: true, RequestsPerMinute: "1.5", Burst: "5"},
	} {
		_, err := s.CommitRateLimit(form)
		assert.True(t, errors.Is(err, ErrInvalid), "%+v", form)
	}
	// Nothing written by the failed commits.
	assert.Equal(t, RateLimitConfig{RequestsPerMinute: 200}, s.Snapshot().RateLimit)
}

func TestStore_CommitSystem(t *testing.T) {
	s := NewStore(nil)

	cfg, err := s.CommitSystem(SystemForm{LogLevel: "debug", Action: "log-only"})
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, ActionLogOnly, cfg.Action)

	_, err = s.CommitSystem(SystemForm{LogLevel: "trace", Action: "block"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = s.CommitSystem(SystemForm{LogLevel: "info", Action: "allow"})
	assert.ErrorIs(t, err, ErrInvalid)

	assert.Equal(t, LogLevelDebug, s.Snapshot().LogLevel)
	assert.Equal(t, ActionLogOnly, s.Snapshot().Action)
}

func TestStore_SetEnabled(t *testing.T) {
	s := NewStore(nil)
	assert.False(t, s.SetEnabled(false).Enabled)
	assert.False(t, s.Snapshot().Enabled)
}

func TestStore_Replace(t *testing.T) {
	s := NewStore(nil)
	s.ResetSecurityToggles()

	next := Default()
	next.Action = "monitor"
	require.NoError(t, s.Replace(next))
	assert.Equal(t, ActionLogOnly, s.Snapshot().Action)
	assert.Nil(t, s.PendingSecurityToggles())

	bad := Default()
	bad.LogLevel = "nope"
	assert.ErrorIs(t, s.Replace(bad), ErrInvalid)
	assert.Equal(t, ActionLogOnly, s.Snapshot().Action)
}
