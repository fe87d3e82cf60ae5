// Package tracker implements functionality for tracking and saving
// data generated during a training run.
package tracker

import (
	ts "github.com/samuelfneumann/gorl/timestep"
)

// Tracker tracks data about a training run and saves it to disk.
// Trackers are registered with an engine, which feeds them every
// timestep the environment produces.
type Tracker interface {
	// Track records any needed data from the timestep
	Track(t ts.TimeStep)

	// Save saves the tracked data to disk
	Save() error
}
