// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/gorl/environment"
	ts "github.com/samuelfneumann/gorl/timestep"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnitude of force applied
	Dt             float64 = 0.02 // Seconds between state updates

	// Bounds (+/-) on state variables
	PositionBounds float64 = 2.4
	AngleBounds    float64 = math.Pi

	// FailAngle is the angle at which the pole is considered fallen
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2
)

// Cartpole implements the classic control environment Cartpole. A pole
// is attached to a cart which moves horizontally, and the agent must
// keep the pole balanced upright for as long as possible.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity.
//
// Actions are discrete and determine the force applied to the cart:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// The reward is +1 on every step. An episode ends in a terminal state
// when the pole falls past FailAngle or the cart leaves the track, and
// is cut off after stepLimit steps.
type Cartpole struct {
	env.Starter
	lastStep  ts.TimeStep
	discount  float64
	stepLimit int
	failAngle float64
}

// New constructs a new Cartpole environment with the given start-state
// distribution, discount factor, and episode step limit.
func New(s env.Starter, discount float64, stepLimit int) (*Cartpole,
	ts.TimeStep) {
	state := s.Start()
	firstStep := ts.New(ts.First, 0.0, discount, state, 0)

	c := &Cartpole{
		Starter:   s,
		lastStep:  firstStep,
		discount:  discount,
		stepLimit: stepLimit,
		failAngle: FailAngle,
	}

	return c, firstStep
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() ts.TimeStep {
	startStep := ts.New(ts.First, 0, c.discount, c.Start(), 0)
	c.lastStep = startStep

	return startStep
}

// Step takes one environmental step given action a and returns the next
// state as a timestep.TimeStep and a bool indicating whether or not the
// episode has ended
func (c *Cartpole) Step(a mat.Vector) (ts.TimeStep, bool) {
	intAction := int(a.AtVec(0))
	if intAction < MinDiscreteAction || intAction > MaxDiscreteAction {
		panic(fmt.Sprintf("step: illegal action %v ∉ (0, 1, 2)",
			intAction))
	}

	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	var force float64
	switch intAction {
	case 0:
		force = -ForceMag
	case 2:
		force = ForceMag
	}

	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	totalMass := PoleMass + CartMass
	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / totalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/totalMass

	// Euler kinematic integration
	x += Dt * xDot
	xDot += Dt * xAcc
	th += Dt * thDot
	thDot += Dt * thAcc

	newState := mat.NewVecDense(4, []float64{x, xDot, th, thDot})
	number := c.lastStep.Number + 1

	var nextStep ts.TimeStep
	switch {
	case math.Abs(th) > c.failAngle || math.Abs(x) > PositionBounds:
		nextStep = ts.NewLast(ts.TerminalStateReached, 1.0, c.discount,
			newState, number)

	case number >= c.stepLimit:
		nextStep = ts.NewLast(ts.Cutoff, 1.0, c.discount, newState, number)

	default:
		nextStep = ts.New(ts.Mid, 1.0, c.discount, newState, number)
	}

	c.lastStep = nextStep
	return nextStep, nextStep.Last()
}

// ActionSpec returns the action specification of the environment
func (c *Cartpole) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Cartpole) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(4, nil)

	lower := []float64{-PositionBounds, math.Inf(-1), -AngleBounds,
		math.Inf(-1)}
	lowerBound := mat.NewVecDense(4, lower)

	upper := []float64{PositionBounds, math.Inf(1), AngleBounds,
		math.Inf(1)}
	upperBound := mat.NewVecDense(4, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

func (c *Cartpole) String() string {
	state := c.lastStep.Observation
	msg := "Cartpole  |  Position: %v  |  Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	return fmt.Sprintf(msg, state.AtVec(0), state.AtVec(1), state.AtVec(2),
		state.AtVec(3))
}

// NewDefault returns a Cartpole with the conventional uniform
// [-0.05, 0.05] start-state distribution for each state feature
func NewDefault(seed uint64, discount float64, stepLimit int) (*Cartpole,
	ts.TimeStep) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)

	return New(starter, discount, stepLimit)
}
