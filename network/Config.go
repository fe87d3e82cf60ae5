package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// LayerType describes the types of layers that can appear in a network
// configuration. The enumeration is closed: configurations naming any
// other type are rejected when the network is built.
type LayerType string

const (
	Dense LayerType = "dense"
)

// LayerConfig describes a single layer of a feed-forward network in a
// serialized configuration. Scope is an optional variable-scope name
// kept for compatibility with configuration files produced by other
// frameworks; it does not affect the built network.
type LayerConfig struct {
	Type       LayerType `json:"type"`
	Units      int       `json:"units"`
	Activation string    `json:"activation"`
	Scope      string    `json:"scope,omitempty"`
}

// Validate returns an error if the LayerConfig does not describe a
// constructible layer
func (l LayerConfig) Validate() error {
	if l.Type != Dense {
		return fmt.Errorf("validate: no such layer type %q", l.Type)
	}
	if l.Units <= 0 {
		return fmt.Errorf("validate: layer must have units > 0, got %v",
			l.Units)
	}
	if _, err := ActivationFromString(l.Activation); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// FromConfig builds a NeuralNet from an ordered sequence of layer
// configurations. The layers parameter describes the hidden layers of
// the network; a final linear layer projecting to outputs values is
// always appended. Each hidden layer receives a bias unit. Unknown
// layer types or activations result in an error, so a malformed
// configuration fails here rather than at update time.
func FromConfig(features, batch, outputs int, g *G.ExprGraph,
	layers []LayerConfig, init G.InitWFn) (NeuralNet, error) {
	hiddenSizes := make([]int, len(layers))
	biases := make([]bool, len(layers))
	activations := make([]*Activation, len(layers))

	for i, layer := range layers {
		if err := layer.Validate(); err != nil {
			return nil, fmt.Errorf("fromconfig: layer %d: %v", i, err)
		}

		act, err := ActivationFromString(layer.Activation)
		if err != nil {
			return nil, fmt.Errorf("fromconfig: layer %d: %v", i, err)
		}

		hiddenSizes[i] = layer.Units
		biases[i] = true
		activations[i] = act
	}

	return NewMultiHeadMLP(features, batch, outputs, g, hiddenSizes, biases,
		init, activations)
}
