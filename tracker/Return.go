package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/gorl/timestep"
)

// Return tracks the episodic returns seen over a training run. The
// return of each completed episode is recorded in order, and Save
// writes the full sequence to disk as a gob-encoded []float64.
type Return struct {
	filename string

	currentReturn float64
	returns       []float64
}

// NewReturn returns a new Return tracker which saves to filename.
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track records the timestep's reward. A first timestep starts a new
// episode's accumulator and a last timestep completes it.
func (r *Return) Track(t ts.TimeStep) {
	if t.First() {
		r.currentReturn = 0
		return
	}

	r.currentReturn += t.Reward
	if t.Last() {
		r.returns = append(r.returns, r.currentReturn)
		r.currentReturn = 0
	}
}

// Returns returns the episodic returns recorded so far.
func (r *Return) Returns() []float64 {
	out := make([]float64, len(r.returns))
	copy(out, r.returns)
	return out
}

// Save writes the tracked returns to the tracker's file.
func (r *Return) Save() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.returns); err != nil {
		return fmt.Errorf("save: could not encode returns: %v", err)
	}
	return nil
}

// LoadReturns reads episodic returns previously written by a Return
// tracker's Save.
func LoadReturns(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadreturns: could not open file: %v", err)
	}
	defer file.Close()

	var returns []float64
	if err := gob.NewDecoder(file).Decode(&returns); err != nil {
		return nil, fmt.Errorf("loadreturns: could not decode returns: %v",
			err)
	}
	return returns, nil
}
