// Package preprocess implements ordered pipelines of state transforms
// applied to raw observations before they reach a network
package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// TransformType describes the types of transforms that can appear in a
// preprocessing configuration. The enumeration is closed:
// configurations naming any other type are rejected when the pipeline
// is built.
type TransformType string

const (
	Clip    TransformType = "clip"
	Rescale TransformType = "rescale"
)

// Config mirrors a single transform specification in a serialized
// configuration file. Only the fields relevant to the named type are
// read.
type Config struct {
	Type TransformType `json:"type"`

	// Clip
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// Rescale
	Scale float64 `json:"scale,omitempty"`
	Shift float64 `json:"shift,omitempty"`
}

// Transform maps a raw observation to a transformed observation of the
// same length. Implementations must not modify their input.
type Transform interface {
	Apply([]float64) []float64
}

// Create returns the Transform the Config describes
func (c Config) Create() (Transform, error) {
	switch c.Type {
	case Clip:
		if c.Min > c.Max {
			return nil, fmt.Errorf("create: clip requires min <= max, "+
				"got [%v, %v]", c.Min, c.Max)
		}
		return clip{min: c.Min, max: c.Max}, nil

	case Rescale:
		if c.Scale == 0 {
			return nil, fmt.Errorf("create: rescale requires a non-zero " +
				"scale")
		}
		return rescale{scale: c.Scale, shift: c.Shift}, nil
	}

	return nil, fmt.Errorf("create: no such transform type %q", c.Type)
}

// Pipeline applies an ordered sequence of Transforms. The empty
// Pipeline is the identity.
type Pipeline struct {
	transforms []Transform
}

// NewPipeline builds a Pipeline from an ordered sequence of transform
// configurations. An empty or nil sequence yields the identity
// pipeline. Unknown transform types result in an error, so a malformed
// configuration fails at construction.
func NewPipeline(configs []Config) (Pipeline, error) {
	transforms := make([]Transform, len(configs))
	for i, c := range configs {
		t, err := c.Create()
		if err != nil {
			return Pipeline{}, fmt.Errorf("newpipeline: transform %d: %v",
				i, err)
		}
		transforms[i] = t
	}

	return Pipeline{transforms: transforms}, nil
}

// Apply runs the observation through each Transform in order. The
// input is never modified.
func (p Pipeline) Apply(obs []float64) []float64 {
	if len(p.transforms) == 0 {
		return obs
	}

	out := obs
	for _, t := range p.transforms {
		out = t.Apply(out)
	}
	return out
}

// clip bounds each feature to [min, max]
type clip struct {
	min, max float64
}

func (c clip) Apply(obs []float64) []float64 {
	out := make([]float64, len(obs))
	for i, v := range obs {
		switch {
		case v < c.min:
			out[i] = c.min
		case v > c.max:
			out[i] = c.max
		default:
			out[i] = v
		}
	}
	return out
}

// rescale maps each feature x to scale*x + shift
type rescale struct {
	scale, shift float64
}

func (r rescale) Apply(obs []float64) []float64 {
	out := make([]float64, len(obs))
	floats.ScaleTo(out, r.scale, obs)
	floats.AddConst(r.shift, out)
	return out
}
