package solver

import G "gorgonia.org/gorgonia"

// SGDConfig describes a configuration of the vanilla gradient
// descent solver.
type SGDConfig struct {
	StepSize float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

// NewSGD returns a new vanilla gradient descent Solver
func NewSGD(stepSize float64, batchSize int) (*Solver, error) {
	sgd := SGDConfig{
		StepSize: stepSize,
		Batch:    batchSize,
	}

	return newSolver(SGD, sgd)
}

// Create returns a Gorgonia vanilla Solver as described by the
// SGDConfig
func (v SGDConfig) Create() G.Solver {
	if v.Clip <= 0 {
		return G.NewVanillaSolver(
			G.WithLearnRate(v.StepSize),
			G.WithBatchSize(float64(v.Batch)),
		)
	}
	return G.NewVanillaSolver(
		G.WithLearnRate(v.StepSize),
		G.WithBatchSize(float64(v.Batch)),
		G.WithClip(v.Clip),
	)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v SGDConfig) ValidType(t Type) bool {
	return t == SGD
}
