package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_LocksAfterThreshold(t *testing.T) {
	t.Parallel()

	g := NewGuard(3, time.Minute, 5*time.Minute)
	now := time.Now().UTC()

	assert.Equal(t, StateWarning, g.RecordFailure("alice", now))
	assert.Equal(t, StateWarning, g.RecordFailure("alice", now))
	assert.Equal(t, StateLocked, g.RecordFailure("alice", now))

	ok, retryAfter := g.Allow("alice", now)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.Equal(t, StateLocked, g.StateOf("alice", now))
}

func TestGuard_UnlockIsTimeBased(t *testing.T) {
	t.Parallel()

	g := NewGuard(2, time.Minute, 5*time.Minute)
	now := time.Now().UTC()

	g.RecordFailure("bob", now)
	g.RecordFailure("bob", now)

	ok, _ := g.Allow("bob", now.Add(4*time.Minute))
	assert.False(t, ok)

	ok, _ = g.Allow("bob", now.Add(5*time.Minute+time.Second))
	assert.True(t, ok)
}

func TestGuard_SuccessResetsCounter(t *testing.T) {
	t.Parallel()

	g := NewGuard(3, time.Minute, 5*time.Minute)
	now := time.Now().UTC()

	g.RecordFailure("carol", now)
	g.RecordFailure("carol", now)
	g.RecordSuccess("carol", now)

	assert.Equal(t, StateNormal, g.StateOf("carol", now))

	g.RecordFailure("carol", now)
	g.RecordFailure("carol", now)
	assert.Equal(t, StateWarning, g.StateOf("carol", now))

	ok, _ := g.Allow("carol", now)
	assert.True(t, ok)
}

func TestGuard_SuccessDoesNotClearActiveLock(t *testing.T) {
	t.Parallel()

	g := NewGuard(2, time.Minute, 5*time.Minute)
	now := time.Now().UTC()

	g.RecordFailure("dave", now)
	g.RecordFailure("dave", now)
	g.RecordSuccess("dave", now)

	ok, _ := g.Allow("dave", now)
	assert.False(t, ok)
}

func TestGuard_WindowReset(t *testing.T) {
	t.Parallel()

	g := NewGuard(3, time.Minute, 5*time.Minute)
	now := time.Now().UTC()

	g.RecordFailure("erin", now)
	g.RecordFailure("erin", now)

	// Idle past the window: the stale count does not carry over.
	later := now.Add(2 * time.Minute)
	assert.Equal(t, StateWarning, g.RecordFailure("erin", later))
	assert.Equal(t, StateWarning, g.RecordFailure("erin", later))

	ok, _ := g.Allow("erin", later)
	assert.True(t, ok)
}

func TestGuard_IndependentKeys(t *testing.T) {
	t.Parallel()

	g := NewGuard(2, time.Minute, 5*time.Minute)
	now := time.Now().UTC()

	g.RecordFailure("frank", now)
	g.RecordFailure("frank", now)

	ok, _ := g.Allow("frank", now)
	require.False(t, ok)

	ok, _ = g.Allow("grace", now)
	assert.True(t, ok)
}

func TestGuard_PurgeIdle(t *testing.T) {
	t.Parallel()

	g := NewGuard(3, time.Minute, time.Minute)
	now := time.Now().UTC()

	g.RecordFailure("henry", now)
	g.RecordFailure("iris", now)

	assert.Equal(t, 0, g.PurgeIdle(now))
	assert.Equal(t, 2, g.PurgeIdle(now.Add(3*time.Minute)))
	assert.Equal(t, StateNormal, g.StateOf("henry", now.Add(3*time.Minute)))
}
