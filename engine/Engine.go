// Package engine implements the training loop that runs an agent in
// an environment.
package engine

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/samuelfneumann/gorl/agent"
	"github.com/samuelfneumann/gorl/environment"
	ts "github.com/samuelfneumann/gorl/timestep"
	"github.com/samuelfneumann/gorl/tracker"
)

// Engine runs episodes of agent-environment interaction. Each
// environment step is offered to the agent for learning and to any
// registered trackers for recording. Every run gets a unique ID which
// is attached to all log output, so that interleaved logs from
// concurrent runs can be told apart.
type Engine struct {
	id    uuid.UUID
	env   environment.Environment
	agent agent.Agent

	episodes int
	steps    int

	trackers []tracker.Tracker
	log      zerolog.Logger
}

// New returns a new Engine running the agent described by config in
// env.
func New(config agent.Config, env environment.Environment, seed uint64,
	logger zerolog.Logger, trackers ...tracker.Tracker) (*Engine, error) {
	a, err := config.CreateAgent(env, seed)
	if err != nil {
		return nil, errors.Wrap(err, "new engine: could not create agent")
	}
	return NewFromAgent(a, env, logger, trackers...), nil
}

// NewFromJSON returns a new Engine whose agent is described by a JSON
// configuration manifest.
func NewFromJSON(manifest []byte, env environment.Environment, seed uint64,
	logger zerolog.Logger, trackers ...tracker.Tracker) (*Engine, error) {
	config, err := agent.FromJSON(manifest)
	if err != nil {
		return nil, errors.Wrap(err, "new engine: invalid configuration")
	}
	return New(config, env, seed, logger, trackers...)
}

// NewFromAgent returns a new Engine running an already constructed
// agent in env.
func NewFromAgent(a agent.Agent, env environment.Environment,
	logger zerolog.Logger, trackers ...tracker.Tracker) *Engine {
	id := uuid.New()
	log := logger.With().Str("run", id.String()).Logger()

	return &Engine{
		id:       id,
		env:      env,
		agent:    a,
		trackers: trackers,
		log:      log,
	}
}

// RunEpisode runs a single episode to completion and returns its
// undiscounted return. An error from the agent's update terminates
// the episode immediately; the inconsistent learner state it implies
// should end the run.
func (e *Engine) RunEpisode() (float64, error) {
	step := e.env.Reset()
	if err := e.agent.ObserveFirst(step); err != nil {
		return 0, errors.Wrap(err, "runepisode")
	}
	e.track(step)

	episodeReturn := 0.0
	for !step.Last() {
		action := e.agent.SelectAction(step)

		step, _ = e.env.Step(action)
		episodeReturn += step.Reward
		e.steps++
		e.track(step)

		if err := e.agent.Observe(action, step); err != nil {
			return episodeReturn, errors.Wrap(err, "runepisode")
		}
		if err := e.agent.Step(); err != nil {
			return episodeReturn, errors.Wrap(err, "runepisode")
		}
	}
	e.agent.EndEpisode()
	e.episodes++

	event := e.log.Info().
		Int("episode", e.episodes).
		Int("length", step.Number).
		Int("total_steps", e.steps).
		Float64("return", episodeReturn)
	if d, ok := e.agent.(agent.Diagnoser); ok {
		policyLoss, valueLoss := d.LastLosses()
		event = event.Float64("policy_loss", policyLoss).
			Float64("value_loss", valueLoss)
	}
	event.Msg("episode complete")

	return episodeReturn, nil
}

// Run runs episodes sequentially, returning the return of each
// completed episode. The first agent error stops the run; the returns
// collected so far are returned with it.
func (e *Engine) Run(episodes int) ([]float64, error) {
	returns := make([]float64, 0, episodes)
	for i := 0; i < episodes; i++ {
		episodeReturn, err := e.RunEpisode()
		if err != nil {
			return returns, err
		}
		returns = append(returns, episodeReturn)
	}
	return returns, nil
}

// Save saves all registered trackers' data to disk.
func (e *Engine) Save() error {
	for _, t := range e.trackers {
		if err := t.Save(); err != nil {
			return errors.Wrap(err, "save")
		}
	}
	return nil
}

// ID returns the unique identifier of this run.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Episodes returns the number of episodes completed so far.
func (e *Engine) Episodes() int {
	return e.episodes
}

// Steps returns the number of environment steps taken so far.
func (e *Engine) Steps() int {
	return e.steps
}

func (e *Engine) track(step ts.TimeStep) {
	for _, t := range e.trackers {
		t.Track(step)
	}
}
