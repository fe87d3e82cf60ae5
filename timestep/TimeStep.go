// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes how an episode ended. A TerminalStateReached ending
// means the agent reached a true terminal state of the environment. A
// Cutoff ending means the episode was truncated by a step limit, in
// which case later rewards still exist but were not observed. Ongoing
// episodes have end type Nil.
type EndType int

const (
	Nil EndType = iota
	TerminalStateReached
	Cutoff
)

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	stepType    StepType
	endType     EndType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
}

// New returns a new TimeStep. Steps that end an episode should be
// created with NewLast instead.
func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, Nil, r, d, o, n}
}

// NewLast returns a new TimeStep which is the last in its episode. The
// end parameter records whether the episode truly terminated or was
// cut off by a step limit.
func NewLast(end EndType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{Last, end, r, d, o, n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.stepType == Last
}

// TerminalEnd returns whether a TimeStep ends its episode at a true
// terminal state. An update should not bootstrap past such a step,
// while an episode ended by Cutoff is bootstrapped from the value of
// its final state.
func (t *TimeStep) TerminalEnd() bool {
	return t.stepType == Last && t.endType == TerminalStateReached
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.stepType, t.Reward, t.Discount, t.Number)
}
