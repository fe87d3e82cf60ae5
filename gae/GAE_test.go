package gae

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const tolerance = 1e-10

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name          string
		gamma, lambda float64
		wantErr       bool
	}{
		{"valid", 0.99, 1.0, false},
		{"boundary zeros", 0.0, 0.0, false},
		{"discount too large", 1.1, 0.5, true},
		{"discount negative", -0.1, 0.5, true},
		{"lambda too large", 0.99, 1.5, true},
		{"lambda negative", 0.99, -0.5, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.gamma, test.lambda)
			if test.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// With λ = 1 and zero value estimates, the advantages are the
// discounted Monte-Carlo returns from each step to the episode end.
func TestEstimateMonteCarloBoundary(t *testing.T) {
	e, err := New(0.99, 1.0)
	require.NoError(t, err)

	rewards := []float64{1, 1, 1}
	values := []float64{0, 0, 0}

	adv, ret, err := e.Estimate(rewards, values, 0)
	require.NoError(t, err)

	require.InDelta(t, 2.9701, adv[0], tolerance)
	require.InDelta(t, 1.99, adv[1], tolerance)
	require.InDelta(t, 1.0, adv[2], tolerance)

	// return_t = A_t + V(s_t)
	for i := range adv {
		require.InDelta(t, adv[i]+values[i], ret[i], tolerance)
	}
}

// With λ = 1 and a non-zero baseline, GAE-derived returns still equal
// the discounted Monte-Carlo returns.
func TestEstimateMonteCarloReturnsWithBaseline(t *testing.T) {
	e, err := New(0.9, 1.0)
	require.NoError(t, err)

	rewards := []float64{2, -1, 0.5, 3}
	values := []float64{0.3, -0.2, 1.7, 0.9}

	_, ret, err := e.Estimate(rewards, values, 0)
	require.NoError(t, err)

	// Discounted rewards-to-go, computed directly
	T := len(rewards)
	for i := 0; i < T; i++ {
		var want float64
		for k := T - 1; k >= i; k-- {
			want = rewards[k] + 0.9*want
		}
		require.InDelta(t, want, ret[i], tolerance)
	}
}

// With λ = 0 the advantage at each step is exactly the one-step TD
// residual.
func TestEstimateTDBoundary(t *testing.T) {
	e, err := New(0.99, 0.0)
	require.NoError(t, err)

	rewards := []float64{1, -2, 0.5}
	values := []float64{0.1, 0.7, -0.3}

	adv, _, err := e.Estimate(rewards, values, 0)
	require.NoError(t, err)

	require.InDelta(t, 1+0.99*0.7-0.1, adv[0], tolerance)
	require.InDelta(t, -2+0.99*(-0.3)-0.7, adv[1], tolerance)
	require.InDelta(t, 0.5+0.99*0-(-0.3), adv[2], tolerance)
}

func TestEstimateBootstrap(t *testing.T) {
	e, err := New(1.0, 0.0)
	require.NoError(t, err)

	// A cut-off single-step trajectory bootstraps from the supplied
	// next-state value
	adv, ret, err := e.Estimate([]float64{1}, []float64{0.5}, 2.0)
	require.NoError(t, err)
	require.InDelta(t, 1+2.0-0.5, adv[0], tolerance)
	require.InDelta(t, adv[0]+0.5, ret[0], tolerance)
}

func TestEstimateRejectsNonFinite(t *testing.T) {
	e, err := New(0.99, 1.0)
	require.NoError(t, err)

	_, _, err = e.Estimate([]float64{1, math.NaN()}, []float64{0, 0}, 0)
	require.Error(t, err)

	_, _, err = e.Estimate([]float64{1, math.Inf(1)}, []float64{0, 0}, 0)
	require.Error(t, err)
}

func TestEstimateLengthMismatch(t *testing.T) {
	e, err := New(0.99, 1.0)
	require.NoError(t, err)

	_, _, err = e.Estimate([]float64{1, 2}, []float64{0}, 0)
	require.Error(t, err)
}

func TestEstimateEmpty(t *testing.T) {
	e, err := New(0.99, 1.0)
	require.NoError(t, err)

	adv, ret, err := e.Estimate(nil, nil, 0)
	require.NoError(t, err)
	require.Empty(t, adv)
	require.Empty(t, ret)
}

func TestEstimateAll(t *testing.T) {
	e, err := New(0.99, 1.0)
	require.NoError(t, err)

	rewards := [][]float64{{1, 1, 1}, {2}}
	values := [][]float64{{0, 0, 0}, {0}}

	adv, ret, err := e.EstimateAll(rewards, values, []float64{0, 0})
	require.NoError(t, err)
	require.Len(t, adv, 2)
	require.Len(t, ret, 2)

	// Matches the per-trajectory computation
	for i := range rewards {
		wantAdv, wantRet, err := e.Estimate(rewards[i], values[i], 0)
		require.NoError(t, err)
		require.Equal(t, wantAdv, adv[i])
		require.Equal(t, wantRet, ret[i])
	}

	_, _, err = e.EstimateAll(rewards, values, []float64{0})
	require.Error(t, err)
}
