// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be selected from JSON configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available. The
// enumeration is closed: a Spec naming any other type is rejected when
// the solver is created.
type Type string

// Available solver types
const (
	Adam Type = "adam"
	SGD  Type = "sgd"
)

// Spec mirrors an optimizer specification in a serialized
// configuration file. Hyperparameters beyond the learning rate take
// solver-specific defaults.
type Spec struct {
	Type         Type    `json:"type"`
	LearningRate float64 `json:"learning_rate"`
}

// Validate returns an error if the Spec does not describe a
// constructible solver
func (s Spec) Validate() error {
	switch s.Type {
	case Adam, SGD:
	default:
		return fmt.Errorf("validate: no such solver type %q", s.Type)
	}
	if s.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be > 0, got %v",
			s.LearningRate)
	}
	return nil
}

// Create returns the solver the Spec describes, scaling gradients by
// the given batch size. Unknown solver types result in an error, so a
// malformed configuration fails here rather than at update time.
func (s Spec) Create(batchSize int) (*Solver, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch s.Type {
	case Adam:
		return NewDefaultAdam(s.LearningRate, batchSize)
	case SGD:
		return NewSGD(s.LearningRate, batchSize)
	}

	// Unreachable after Validate
	return nil, fmt.Errorf("create: no such solver type %q", s.Type)
}

// Solver wraps a Gorgonia Solver together with the configuration that
// produced it.
type Solver struct {
	G.Solver
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newsolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create the Gorgonia Solvers it describes.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}
