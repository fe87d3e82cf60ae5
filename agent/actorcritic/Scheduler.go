package actorcritic

import (
	"fmt"
)

// UpdateMode determines the unit in which update intervals are
// counted.
type UpdateMode string

// Available update modes
const (
	// Episodes counts completed episodes between updates
	Episodes UpdateMode = "episodes"

	// Timesteps counts environment transitions between updates
	Timesteps UpdateMode = "timesteps"
)

// SchedulerState describes what a Scheduler is currently doing.
type SchedulerState int

const (
	// Accumulating means experience is being collected and no update
	// is due
	Accumulating SchedulerState = iota

	// Updating means the update interval has elapsed and an update
	// must run before accumulation continues
	Updating
)

func (s SchedulerState) String() string {
	switch s {
	case Accumulating:
		return "Accumulating"
	case Updating:
		return "Updating"
	default:
		return fmt.Sprintf("SchedulerState(%d)", int(s))
	}
}

// Scheduler decides when gradient updates run. It counts completed
// episodes or timesteps, depending on its mode, and transitions from
// Accumulating to Updating each time the configured interval elapses.
// Consecutive transitions to Updating are always exactly one interval
// apart: completing an update resets the counter's modulus window.
//
// When updates are disabled the Scheduler never leaves Accumulating,
// which turns the agent into a pure data collector.
type Scheduler struct {
	mode      UpdateMode
	doUpdates bool
	interval  int

	sinceUpdate int
	state       SchedulerState
}

// NewScheduler returns a new Scheduler firing every interval units of
// the given mode. Updates are suppressed entirely when doUpdates is
// false.
func NewScheduler(mode UpdateMode, interval int,
	doUpdates bool) (*Scheduler, error) {
	switch mode {
	case Episodes, Timesteps:
	default:
		return nil, fmt.Errorf("newscheduler: no such update mode %q", mode)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("newscheduler: update interval must be "+
			"> 0, got %v", interval)
	}

	return &Scheduler{
		mode:      mode,
		doUpdates: doUpdates,
		interval:  interval,
		state:     Accumulating,
	}, nil
}

// RecordStep informs the Scheduler that one environment transition
// was observed. It is counted only in Timesteps mode.
func (s *Scheduler) RecordStep() {
	if s.mode != Timesteps {
		return
	}
	s.record()
}

// RecordEpisode informs the Scheduler that an episode completed. It
// is counted only in Episodes mode.
func (s *Scheduler) RecordEpisode() {
	if s.mode != Episodes {
		return
	}
	s.record()
}

func (s *Scheduler) record() {
	if !s.doUpdates || s.state == Updating {
		return
	}

	s.sinceUpdate++
	if s.sinceUpdate >= s.interval {
		s.state = Updating
	}
}

// ShouldUpdate returns whether an update is due.
func (s *Scheduler) ShouldUpdate() bool {
	return s.state == Updating
}

// Updated informs the Scheduler that the due update has run,
// restarting accumulation with a fresh interval window.
func (s *Scheduler) Updated() {
	s.sinceUpdate = 0
	s.state = Accumulating
}

// State returns the Scheduler's current state.
func (s *Scheduler) State() SchedulerState {
	return s.state
}

// Mode returns the unit in which the Scheduler counts intervals.
func (s *Scheduler) Mode() UpdateMode {
	return s.mode
}
