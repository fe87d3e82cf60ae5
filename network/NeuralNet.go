// Package network implements feed-forward neural networks on Gorgonia
// computational graphs
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass has been added to a
// Gorgonia computational graph
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() []G.Value
	Prediction() []*G.Node
}

// Set sets the weights of dest to be equal to the weights of source.
// The networks must share the same architecture.
func Set(dest, source NeuralNet) error {
	if len(dest.Learnables()) != len(source.Learnables()) {
		return fmt.Errorf("set: architecture mismatch \n\twant(%v layers)"+
			"\n\thave(%v layers)", len(dest.Learnables()),
			len(source.Learnables()))
	}
	return dest.Set(source)
}
