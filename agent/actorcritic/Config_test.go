package actorcritic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gorl/agent"
	"github.com/samuelfneumann/gorl/initwfn"
	"github.com/samuelfneumann/gorl/memory"
	"github.com/samuelfneumann/gorl/solver"
)

const manifest = `{
	"type": "actor_critic",
	"sample_episodes": true,
	"discount": 0.99,
	"gae_lambda": 1.0,
	"weight_entropy": 0.01,
	"memory_spec": {
		"type": "ring_buffer",
		"capacity": 10000
	},
	"preprocessing_spec": [
		{"type": "clip", "min": -10.0, "max": 10.0}
	],
	"observe_spec": {
		"buffer_size": 1000
	},
	"network_spec": [
		{"type": "dense", "units": 64, "activation": "relu"},
		{"type": "dense", "units": 64, "activation": "relu"}
	],
	"value_function_spec": [
		{"type": "dense", "units": 128, "activation": "tanh"}
	],
	"initializer_spec": {
		"type": "GlorotN",
		"config": {"gain": 2.0}
	},
	"update_spec": {
		"update_mode": "episodes",
		"do_updates": true,
		"update_interval": 1,
		"batch_size": 8
	},
	"optimizer_spec": {
		"type": "adam",
		"learning_rate": 0.001
	},
	"value_function_optimizer_spec": {
		"type": "adam",
		"learning_rate": 0.01
	}
}`

// TestFromJSON ensures a full configuration manifest round-trips
// through the registry into a validated actor-critic Config.
func TestFromJSON(t *testing.T) {
	c, err := agent.FromJSON([]byte(manifest))
	require.NoError(t, err)

	config, ok := c.(*Config)
	require.True(t, ok)

	assert.Equal(t, TypeActorCritic, config.Type())
	assert.True(t, config.SampleEpisodes)
	assert.Equal(t, 0.99, config.Discount)
	assert.Equal(t, 1.0, config.GAELambda)
	assert.Equal(t, 0.01, config.WeightEntropy)

	assert.Equal(t, memory.RingBuffer, config.Memory.Type)
	assert.Equal(t, 10000, config.Memory.Capacity)

	require.Len(t, config.Preprocessing, 1)
	assert.Equal(t, -10.0, config.Preprocessing[0].Min)

	assert.Equal(t, 1000, config.Observe.BufferSize)

	require.Len(t, config.Network, 2)
	assert.Equal(t, 64, config.Network[0].Units)
	assert.Equal(t, "relu", config.Network[0].Activation)
	require.Len(t, config.ValueFunction, 1)
	assert.Equal(t, 128, config.ValueFunction[0].Units)

	require.NotNil(t, config.Init)
	assert.Equal(t, initwfn.GlorotN, config.Init.Type)
	assert.Equal(t, initwfn.GlorotNConfig{Gain: 2.0}, config.Init.Config)

	assert.Equal(t, Episodes, config.Update.UpdateMode)
	assert.True(t, config.Update.DoUpdates)
	assert.Equal(t, 1, config.Update.UpdateInterval)
	assert.Equal(t, 8, config.Update.BatchSize)

	assert.Equal(t, solver.Adam, config.Optimizer.Type)
	assert.Equal(t, 0.001, config.Optimizer.LearningRate)
	assert.Equal(t, 0.01, config.ValueFunctionOptimizer.LearningRate)
}

// TestFromJSONUnknownType ensures the registry rejects unregistered
// agent types.
func TestFromJSONUnknownType(t *testing.T) {
	_, err := agent.FromJSON([]byte(`{"type": "dqn"}`))
	assert.Error(t, err)
}

// TestConfigValidate exercises fail-fast validation of each
// hyperparameter group.
func TestConfigValidate(t *testing.T) {
	base := func() Config {
		var c Config
		require.NoError(t, json.Unmarshal([]byte(manifest), &c))
		return c
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"discount above one", func(c *Config) { c.Discount = 1.5 }},
		{"negative discount", func(c *Config) { c.Discount = -0.1 }},
		{"lambda above one", func(c *Config) { c.GAELambda = 2 }},
		{"negative entropy weight",
			func(c *Config) { c.WeightEntropy = -1 }},
		{"unknown memory type",
			func(c *Config) { c.Memory.Type = "priority_queue" }},
		{"zero memory capacity",
			func(c *Config) { c.Memory.Capacity = 0 }},
		{"unknown transform",
			func(c *Config) { c.Preprocessing[0].Type = "whiten" }},
		{"empty policy network",
			func(c *Config) { c.Network = nil }},
		{"unknown layer type",
			func(c *Config) { c.Network[0].Type = "conv2d" }},
		{"unknown activation",
			func(c *Config) { c.ValueFunction[0].Activation = "swish" }},
		{"unknown update mode",
			func(c *Config) { c.Update.UpdateMode = "epochs" }},
		{"zero update interval",
			func(c *Config) { c.Update.UpdateInterval = 0 }},
		{"zero batch size",
			func(c *Config) { c.Update.BatchSize = 0 }},
		{"timestep batch exceeds capacity", func(c *Config) {
			c.SampleEpisodes = false
			c.Memory.Capacity = 4
			c.Update.BatchSize = 5
		}},
		{"unknown optimizer",
			func(c *Config) { c.Optimizer.Type = "rmsprop" }},
		{"non-positive learning rate",
			func(c *Config) { c.ValueFunctionOptimizer.LearningRate = 0 }},
		{"wrong agent type",
			func(c *Config) { c.AgentType = "dqn" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := base()
			test.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

// TestConfigValidateEpisodeBatch ensures that when sampling episodes
// the batch size is a count of episodes and is not bounded by the
// memory capacity, which counts transitions.
func TestConfigValidateEpisodeBatch(t *testing.T) {
	var c Config
	require.NoError(t, json.Unmarshal([]byte(manifest), &c))

	c.SampleEpisodes = true
	c.Memory.Capacity = 100
	c.Update.BatchSize = 200

	assert.NoError(t, c.Validate())
}
