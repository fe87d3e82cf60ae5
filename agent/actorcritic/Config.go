package actorcritic

import (
	"fmt"

	"github.com/samuelfneumann/gorl/agent"
	"github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/initwfn"
	"github.com/samuelfneumann/gorl/memory"
	"github.com/samuelfneumann/gorl/network"
	"github.com/samuelfneumann/gorl/preprocess"
	"github.com/samuelfneumann/gorl/solver"
)

// TypeActorCritic is the type tag under which Config is registered.
const TypeActorCritic agent.Type = "actor_critic"

func init() {
	agent.Register(Config{})
}

// ObserveConfig configures how observed transitions are staged before
// entering experience memory.
type ObserveConfig struct {
	// BufferSize is the number of transitions collected in the
	// staging buffer before they are flushed to memory. The staging
	// buffer is also flushed whenever an episode ends.
	BufferSize int `json:"buffer_size"`
}

// UpdateConfig configures when gradient updates run and how much
// experience each update consumes.
type UpdateConfig struct {
	UpdateMode UpdateMode `json:"update_mode"`

	// DoUpdates disables learning entirely when false. The agent
	// still collects experience into memory, which is useful for
	// evaluation runs and for debugging data collection.
	DoUpdates bool `json:"do_updates"`

	// UpdateInterval is the number of UpdateMode units between
	// consecutive updates.
	UpdateInterval int `json:"update_interval"`

	// BatchSize is the number of most recent transitions (or, when
	// sampling episodes, the number of most recent complete
	// episodes) drained from memory per update.
	BatchSize int `json:"batch_size"`
}

// Validate returns an error if the UpdateConfig does not describe a
// runnable update schedule.
func (u UpdateConfig) Validate() error {
	switch u.UpdateMode {
	case Episodes, Timesteps:
	default:
		return fmt.Errorf("validate: no such update mode %q", u.UpdateMode)
	}
	if u.UpdateInterval <= 0 {
		return fmt.Errorf("validate: update interval must be > 0, got %v",
			u.UpdateInterval)
	}
	if u.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be > 0, got %v",
			u.BatchSize)
	}
	return nil
}

// Config implements a configuration for an on-policy actor-critic
// agent with generalized advantage estimation. Configs are typically
// deserialized from JSON configuration files; all hyperparameters the
// agent uses appear here explicitly.
type Config struct {
	AgentType agent.Type `json:"type"`

	// SampleEpisodes selects whether updates consume whole episodes
	// or flat windows of timesteps
	SampleEpisodes bool `json:"sample_episodes"`

	Discount      float64 `json:"discount"`
	GAELambda     float64 `json:"gae_lambda"`
	WeightEntropy float64 `json:"weight_entropy"`

	Memory        memory.Config       `json:"memory_spec"`
	Preprocessing []preprocess.Config `json:"preprocessing_spec"`
	Observe       ObserveConfig       `json:"observe_spec"`

	Network       []network.LayerConfig `json:"network_spec"`
	ValueFunction []network.LayerConfig `json:"value_function_spec"`

	// Init selects the weight initialization scheme for both
	// networks. When absent, Glorot Uniform with gain 1 is used.
	Init *initwfn.InitWFn `json:"initializer_spec,omitempty"`

	Update UpdateConfig `json:"update_spec"`

	Optimizer              solver.Spec `json:"optimizer_spec"`
	ValueFunctionOptimizer solver.Spec `json:"value_function_optimizer_spec"`
}

// Type returns the type of agent the Config describes.
func (c Config) Type() agent.Type {
	return TypeActorCritic
}

// ValidAgent returns whether the argument is a valid agent for the
// Config.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*ActorCritic)
	return ok
}

// Validate returns an error describing the first invalid
// hyperparameter of the Config, if any. Validation is fail-fast so
// that a malformed configuration file is rejected before any graph
// construction happens.
func (c Config) Validate() error {
	if c.AgentType != "" && c.AgentType != TypeActorCritic {
		return fmt.Errorf("validate: configuration is for agent type %q, "+
			"not %q", c.AgentType, TypeActorCritic)
	}

	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], got %v",
			c.Discount)
	}
	if c.GAELambda < 0 || c.GAELambda > 1 {
		return fmt.Errorf("validate: gae_lambda must be in [0, 1], got %v",
			c.GAELambda)
	}
	if c.WeightEntropy < 0 {
		return fmt.Errorf("validate: weight_entropy must be >= 0, got %v",
			c.WeightEntropy)
	}

	if _, err := c.Memory.Create(); err != nil {
		return fmt.Errorf("validate: memory_spec: %v", err)
	}
	if _, err := preprocess.NewPipeline(c.Preprocessing); err != nil {
		return fmt.Errorf("validate: preprocessing_spec: %v", err)
	}
	if c.Observe.BufferSize < 0 {
		return fmt.Errorf("validate: observe_spec: buffer_size must be "+
			">= 0, got %v", c.Observe.BufferSize)
	}

	if len(c.Network) == 0 {
		return fmt.Errorf("validate: network_spec must have at least one " +
			"layer")
	}
	for i, layer := range c.Network {
		if err := layer.Validate(); err != nil {
			return fmt.Errorf("validate: network_spec: layer %d: %v", i, err)
		}
	}
	if len(c.ValueFunction) == 0 {
		return fmt.Errorf("validate: value_function_spec must have at " +
			"least one layer")
	}
	for i, layer := range c.ValueFunction {
		if err := layer.Validate(); err != nil {
			return fmt.Errorf("validate: value_function_spec: layer %d: %v",
				i, err)
		}
	}

	if err := c.Update.Validate(); err != nil {
		return fmt.Errorf("validate: update_spec: %v", err)
	}
	// When sampling episodes the batch size counts episodes, not
	// transitions, so it is not bounded by the memory capacity
	if !c.SampleEpisodes && c.Update.BatchSize > c.Memory.Capacity {
		return fmt.Errorf("validate: update_spec: batch size %v exceeds "+
			"memory capacity %v", c.Update.BatchSize, c.Memory.Capacity)
	}

	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("validate: optimizer_spec: %v", err)
	}
	if err := c.ValueFunctionOptimizer.Validate(); err != nil {
		return fmt.Errorf("validate: value_function_optimizer_spec: %v", err)
	}

	return nil
}

// CreateAgent creates the actor-critic agent that the Config
// describes for the given environment. The environment must have a
// discrete, one-dimensional action space.
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createagent: %v", err)
	}
	return newActorCritic(c, env, seed)
}
