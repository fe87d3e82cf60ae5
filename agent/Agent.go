// Package agent implements agents which learn from interacting with
// an environment.
package agent

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gorl/timestep"
)

// Agent determines the actions to take in an environment and adjusts
// its behaviour based on the timesteps it observes.
type Agent interface {
	Learner
	Policy
}

// Learner adjusts an agent's behaviour from observed transitions.
// Transitions are observed one at a time as the environment produces
// them, and Step performs any learning that is due after the most
// recent observation.
type Learner interface {
	// Step updates the Learner. Whether any update actually happens
	// is up to the Learner; many accumulate experience over several
	// calls before adjusting any weights.
	Step() error

	// Observe records that action was taken in the previously
	// observed timestep, leading to nextStep.
	Observe(action mat.Vector, nextStep ts.TimeStep) error

	// ObserveFirst records the first timestep of an episode.
	ObserveFirst(t ts.TimeStep) error

	// EndEpisode performs any per-episode cleanup.
	EndEpisode()
}

// Policy selects actions in an environment.
type Policy interface {
	SelectAction(t ts.TimeStep) *mat.VecDense

	// Eval sets the Policy to evaluation mode, Train to training
	// mode. In evaluation mode the Policy acts greedily and no
	// learning takes place.
	Eval()
	Train()
	IsEval() bool
}

// Diagnoser is implemented by agents that expose scalar loss
// diagnostics from their most recent update.
type Diagnoser interface {
	// LastLosses returns the policy and value function losses
	// measured at the last update.
	LastLosses() (policyLoss, valueLoss float64)
}
