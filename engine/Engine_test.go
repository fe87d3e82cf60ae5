package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/gorl/environment"
	ts "github.com/samuelfneumann/gorl/timestep"
)

// stubEnv is a deterministic environment whose episodes last a fixed
// number of steps with reward 1 per step.
type stubEnv struct {
	length int
	step   int
}

func (s *stubEnv) Reset() ts.TimeStep {
	s.step = 0
	return ts.New(ts.First, 0, 1, mat.NewVecDense(1, []float64{0}), 0)
}

func (s *stubEnv) Step(_ mat.Vector) (ts.TimeStep, bool) {
	s.step++
	obs := mat.NewVecDense(1, []float64{float64(s.step)})
	if s.step >= s.length {
		return ts.NewLast(ts.TerminalStateReached, 1, 1, obs, s.step), true
	}
	return ts.New(ts.Mid, 1, 1, obs, s.step), false
}

func (s *stubEnv) ObservationSpec() env.Spec {
	bounds := mat.NewVecDense(1, []float64{0})
	return env.NewSpec(mat.NewVecDense(1, []float64{0}), env.Observation,
		bounds, bounds, env.Continuous)
}

func (s *stubEnv) ActionSpec() env.Spec {
	min := mat.NewVecDense(1, []float64{0})
	max := mat.NewVecDense(1, []float64{1})
	return env.NewSpec(mat.NewVecDense(1, []float64{0}), env.Action, min,
		max, env.Discrete)
}

// stubAgent takes action 0 everywhere and counts the protocol calls
// it receives.
type stubAgent struct {
	observedFirst int
	observed      int
	stepped       int
	ended         int
	eval          bool
}

func (a *stubAgent) ObserveFirst(ts.TimeStep) error { a.observedFirst++; return nil }

func (a *stubAgent) Observe(_ mat.Vector, _ ts.TimeStep) error {
	a.observed++
	return nil
}

func (a *stubAgent) Step() error { a.stepped++; return nil }

func (a *stubAgent) EndEpisode() { a.ended++ }

func (a *stubAgent) SelectAction(ts.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{0})
}

func (a *stubAgent) Eval()        { a.eval = true }
func (a *stubAgent) Train()       { a.eval = false }
func (a *stubAgent) IsEval() bool { return a.eval }

// countTracker counts the timesteps it is fed.
type countTracker struct {
	tracked int
	saved   bool
}

func (c *countTracker) Track(ts.TimeStep) { c.tracked++ }
func (c *countTracker) Save() error       { c.saved = true; return nil }

// TestRunEpisode checks that one episode drives the full learner
// protocol: one ObserveFirst, one Observe and one Step per transition,
// and one EndEpisode.
func TestRunEpisode(t *testing.T) {
	environment := &stubEnv{length: 5}
	a := &stubAgent{}
	track := &countTracker{}

	e := NewFromAgent(a, environment, zerolog.Nop(), track)

	episodeReturn, err := e.RunEpisode()
	require.NoError(t, err)

	assert.Equal(t, 5.0, episodeReturn)
	assert.Equal(t, 1, a.observedFirst)
	assert.Equal(t, 5, a.observed)
	assert.Equal(t, 5, a.stepped)
	assert.Equal(t, 1, a.ended)

	assert.Equal(t, 1, e.Episodes())
	assert.Equal(t, 5, e.Steps())

	// first step plus one per transition
	assert.Equal(t, 6, track.tracked)
}

// TestRun checks multi-episode accounting and tracker saving.
func TestRun(t *testing.T) {
	environment := &stubEnv{length: 3}
	a := &stubAgent{}
	track := &countTracker{}

	e := NewFromAgent(a, environment, zerolog.Nop(), track)

	returns, err := e.Run(4)
	require.NoError(t, err)
	require.Len(t, returns, 4)
	for _, r := range returns {
		assert.Equal(t, 3.0, r)
	}

	assert.Equal(t, 4, e.Episodes())
	assert.Equal(t, 12, e.Steps())
	assert.Equal(t, 4, a.ended)

	require.NoError(t, e.Save())
	assert.True(t, track.saved)
}
