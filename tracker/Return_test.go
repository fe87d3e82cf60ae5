package tracker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gorl/timestep"
)

func episode(r *Return, rewards ...float64) {
	obs := mat.NewVecDense(1, []float64{0})
	r.Track(ts.New(ts.First, 0, 1, obs, 0))
	for i, reward := range rewards {
		if i == len(rewards)-1 {
			r.Track(ts.NewLast(ts.TerminalStateReached, reward, 1, obs,
				i+1))
			continue
		}
		r.Track(ts.New(ts.Mid, reward, 1, obs, i+1))
	}
}

// TestReturnTrack checks per-episode reward accumulation, including
// that the first timestep's reward is not counted.
func TestReturnTrack(t *testing.T) {
	r := NewReturn("")

	episode(r, 1, 1, 1)
	episode(r, -1, 0.5)

	assert.Equal(t, []float64{3, -0.5}, r.Returns())
}

// TestReturnSaveLoad round-trips tracked returns through disk.
func TestReturnSaveLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)

	episode(r, 1, 2, 3)
	episode(r, 4)
	require.NoError(t, r.Save())

	loaded, err := LoadReturns(filename)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 4}, loaded)
}
