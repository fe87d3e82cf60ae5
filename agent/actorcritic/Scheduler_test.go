package actorcritic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSchedulerTimestepInterval ensures that a timestep-mode
// scheduler fires exactly on the interval boundary: never one step
// early and never one step late.
func TestSchedulerTimestepInterval(t *testing.T) {
	const interval = 20

	s, err := NewScheduler(Timesteps, interval, true)
	require.NoError(t, err)

	for i := 1; i <= interval-1; i++ {
		s.RecordStep()
		assert.False(t, s.ShouldUpdate(), "fired early at step %d", i)
		assert.Equal(t, Accumulating, s.State())
	}

	s.RecordStep()
	assert.True(t, s.ShouldUpdate(), "did not fire at step %d", interval)
	assert.Equal(t, Updating, s.State())

	// Steps observed while an update is pending must not widen or
	// shift the next window
	s.RecordStep()
	assert.True(t, s.ShouldUpdate())

	s.Updated()
	assert.Equal(t, Accumulating, s.State())

	for i := 1; i <= interval-1; i++ {
		s.RecordStep()
		assert.False(t, s.ShouldUpdate(),
			"second window fired early at step %d", i)
	}
	s.RecordStep()
	assert.True(t, s.ShouldUpdate(), "second window did not fire")
}

// TestSchedulerEpisodeMode ensures that episode-mode schedulers count
// only episodes and timestep-mode schedulers count only steps.
func TestSchedulerEpisodeMode(t *testing.T) {
	s, err := NewScheduler(Episodes, 2, true)
	require.NoError(t, err)

	// Steps are not the scheduler's unit and must be ignored
	for i := 0; i < 100; i++ {
		s.RecordStep()
	}
	assert.False(t, s.ShouldUpdate())

	s.RecordEpisode()
	assert.False(t, s.ShouldUpdate())
	s.RecordEpisode()
	assert.True(t, s.ShouldUpdate())

	s.Updated()
	s.RecordEpisode()
	assert.False(t, s.ShouldUpdate())
	s.RecordEpisode()
	assert.True(t, s.ShouldUpdate())
}

// TestSchedulerDoUpdatesFalse ensures that a scheduler with updates
// disabled never leaves the accumulating state.
func TestSchedulerDoUpdatesFalse(t *testing.T) {
	s, err := NewScheduler(Timesteps, 1, false)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		s.RecordStep()
		s.RecordEpisode()
	}
	assert.False(t, s.ShouldUpdate())
	assert.Equal(t, Accumulating, s.State())
}

// TestNewSchedulerValidation ensures invalid schedules are rejected.
func TestNewSchedulerValidation(t *testing.T) {
	_, err := NewScheduler("epochs", 1, true)
	assert.Error(t, err)

	_, err = NewScheduler(Episodes, 0, true)
	assert.Error(t, err)

	_, err = NewScheduler(Timesteps, -3, true)
	assert.Error(t, err)
}
