package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/gorl/network"
)

func testLayers() []network.LayerConfig {
	return []network.LayerConfig{
		{Type: network.Dense, Units: 8, Activation: "relu"},
	}
}

func TestSelectAction(t *testing.T) {
	p, err := NewCategoricalMLP(3, 2, 1, G.NewGraph(), testLayers(),
		G.GlorotU(1.0), 42)
	require.NoError(t, err)

	obs := []float64{0.1, -0.2, 0.3}
	for i := 0; i < 20; i++ {
		action, logProb, err := p.SelectAction(obs)
		require.NoError(t, err)

		index := action.AtVec(0)
		assert.Contains(t, []float64{0, 1}, index)
		assert.LessOrEqual(t, logProb, 0.0)
	}
}

// TestSelectActionEval checks that evaluation mode picks the same
// action every time for the same observation.
func TestSelectActionEval(t *testing.T) {
	p, err := NewCategoricalMLP(2, 3, 1, G.NewGraph(), testLayers(),
		G.GlorotU(1.0), 7)
	require.NoError(t, err)
	p.Eval()
	require.True(t, p.IsEval())

	obs := []float64{0.5, -0.5}
	first, _, err := p.SelectAction(obs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		action, _, err := p.SelectAction(obs)
		require.NoError(t, err)
		assert.Equal(t, first.AtVec(0), action.AtVec(0))
	}
}

func TestSelectActionRequiresBatchOne(t *testing.T) {
	p, err := NewCategoricalMLP(2, 2, 4, G.NewGraph(), testLayers(),
		G.GlorotU(1.0), 0)
	require.NoError(t, err)

	_, _, err = p.SelectAction([]float64{0, 0})
	assert.Error(t, err)
}

func TestLogProbOfValidation(t *testing.T) {
	p, err := NewCategoricalMLP(2, 3, 2, G.NewGraph(), testLayers(),
		G.GlorotU(1.0), 0)
	require.NoError(t, err)

	// wrong number of actions for the batch
	err = p.LogProbOf([]float64{0, 0, 1, 1}, []float64{0})
	assert.Error(t, err)

	// action index outside the action space
	err = p.LogProbOf([]float64{0, 0, 1, 1}, []float64{0, 3})
	assert.Error(t, err)

	err = p.LogProbOf([]float64{0, 0, 1, 1}, []float64{0, 2})
	assert.NoError(t, err)
}

func TestNewCategoricalMLPValidation(t *testing.T) {
	_, err := NewCategoricalMLP(2, 1, 1, G.NewGraph(), testLayers(),
		G.GlorotU(1.0), 0)
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	probs, logSumExp := softmax([]float64{1, 1, 1, 1})

	for _, p := range probs {
		assert.InDelta(t, 0.25, p, 1e-12)
	}
	// log(4e) = 1 + log(4)
	assert.InDelta(t, 2.386294361119890, logSumExp, 1e-12)

	// Large logits must not overflow
	probs, _ = softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, probs[0], 1e-12)
}
