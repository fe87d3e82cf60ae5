package solver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecValidate(t *testing.T) {
	assert.NoError(t, Spec{Type: Adam, LearningRate: 0.001}.Validate())
	assert.NoError(t, Spec{Type: SGD, LearningRate: 0.1}.Validate())

	assert.Error(t, Spec{Type: "rmsprop", LearningRate: 0.001}.Validate())
	assert.Error(t, Spec{Type: Adam, LearningRate: 0}.Validate())
	assert.Error(t, Spec{Type: Adam, LearningRate: -0.1}.Validate())
}

func TestSpecCreate(t *testing.T) {
	s, err := Spec{Type: Adam, LearningRate: 0.001}.Create(32)
	require.NoError(t, err)
	assert.Equal(t, Adam, s.Type)

	config, ok := s.Config.(AdamConfig)
	require.True(t, ok)
	assert.Equal(t, 0.001, config.StepSize)
	assert.Equal(t, 32, config.Batch)

	_, err = Spec{Type: "rmsprop", LearningRate: 0.001}.Create(32)
	assert.Error(t, err)
}

func TestSpecUnmarshal(t *testing.T) {
	var s Spec
	data := `{"type": "adam", "learning_rate": 0.0005}`
	require.NoError(t, json.Unmarshal([]byte(data), &s))

	assert.Equal(t, Adam, s.Type)
	assert.Equal(t, 0.0005, s.LearningRate)
}
