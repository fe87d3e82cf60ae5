package preprocess

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineIdentity(t *testing.T) {
	p, err := NewPipeline(nil)
	require.NoError(t, err)

	obs := []float64{1, -2, 3.5}
	require.Equal(t, obs, p.Apply(obs))
}

func TestPipelineOrdering(t *testing.T) {
	// Rescale then clip is not the same as clip then rescale
	p, err := NewPipeline([]Config{
		{Type: Rescale, Scale: 2},
		{Type: Clip, Min: -1, Max: 1},
	})
	require.NoError(t, err)

	got := p.Apply([]float64{0.25, 3, -3})
	require.Equal(t, []float64{0.5, 1, -1}, got)
}

func TestPipelineDoesNotModifyInput(t *testing.T) {
	p, err := NewPipeline([]Config{{Type: Clip, Min: 0, Max: 1}})
	require.NoError(t, err)

	obs := []float64{-5, 5}
	_ = p.Apply(obs)
	require.Equal(t, []float64{-5, 5}, obs)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown type", Config{Type: "standardize"}},
		{"clip min above max", Config{Type: Clip, Min: 1, Max: -1}},
		{"rescale zero scale", Config{Type: Rescale, Scale: 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewPipeline([]Config{test.config})
			require.Error(t, err)
		})
	}
}
