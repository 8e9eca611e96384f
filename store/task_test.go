package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePriorityCapsAt24(t *testing.T) {
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	assert.EqualValues(t, 24, EffectivePriority(0, old, now))
}

func TestEffectivePriorityAddsMinutesElapsed(t *testing.T) {
	now := time.Now()
	ts := now.Add(-10 * time.Minute)
	assert.EqualValues(t, 15, EffectivePriority(5, ts, now))
}

func TestEffectivePriorityNeverNegativeMinutes(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Minute)
	assert.EqualValues(t, 3, EffectivePriority(3, future, now))
}

func TestStateIsTerminal(t *testing.T) {
	assert.True(t, StateDone.IsTerminal())
	assert.True(t, StateSignaled.IsTerminal())
	assert.True(t, StateZombie.IsTerminal())
	assert.False(t, StateQueued.IsTerminal())
	assert.False(t, StateRunning.IsTerminal())
}
