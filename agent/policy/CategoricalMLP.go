// Package policy implements policies for discrete-action agents as
// neural networks on Gorgonia computational graphs.
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gorl/network"
)

// CategoricalMLP is a categorical policy over a discrete action space.
// An MLP produces one logit per action, and actions are drawn from the
// softmax distribution of the logits.
//
// A CategoricalMLP with batch size 1 can select actions with
// SelectAction. A CategoricalMLP with a larger batch size exposes the
// graph nodes needed to construct a policy gradient loss: LogProbNode
// holds the log-probabilities of externally set actions and
// EntropyNode the mean entropy of the batch's action distributions.
type CategoricalMLP struct {
	net        network.NeuralNet
	numActions int
	batch      int

	// actionIndices is a one-hot encoding of the actions whose
	// log-probabilities LogProbNode computes
	actionIndices *G.Node

	logProb    *G.Node
	logProbVal G.Value
	entropy    *G.Node

	vm G.VM // action selection, batch size 1 only

	source rand.Source
	eval   bool
}

// NewCategoricalMLP returns a new CategoricalMLP for an environment
// with the given number of observation features and available actions.
func NewCategoricalMLP(features, numActions, batch int, g *G.ExprGraph,
	layers []network.LayerConfig, init G.InitWFn,
	seed uint64) (*CategoricalMLP, error) {
	if numActions < 2 {
		return nil, fmt.Errorf("newcategoricalmlp: need at least 2 "+
			"actions, got %v", numActions)
	}

	net, err := network.FromConfig(features, batch, numActions, g, layers,
		init)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalmlp: could not create "+
			"network: %v", err)
	}

	p := &CategoricalMLP{
		net:        net,
		numActions: numActions,
		batch:      batch,
		source:     rand.NewSource(seed),
	}

	logits := net.Prediction()[0]
	logSumExp := LogSumExp(logits, 1)
	logProbs := G.Must(G.BroadcastSub(logits, logSumExp, nil, []byte{1}))

	p.actionIndices = G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, numActions), G.WithName("actionIndices"))
	selected := G.Must(G.HadamardProd(p.actionIndices, logProbs))
	p.logProb = G.Must(G.Sum(selected, 1))
	G.Read(p.logProb, &p.logProbVal)

	negEntropyTerms := G.Must(G.HadamardProd(G.Must(G.Exp(logProbs)),
		logProbs))
	rowEntropy := G.Must(G.Neg(G.Must(G.Sum(negEntropyTerms, 1))))
	p.entropy = G.Must(G.Mean(rowEntropy))

	if batch == 1 {
		// The VM evaluates the whole graph, so actionIndices needs a
		// value even though action selection never reads the
		// log-prob node
		zeroes := tensor.New(tensor.WithShape(1, numActions),
			tensor.WithBacking(make([]float64, numActions)))
		if err := G.Let(p.actionIndices, zeroes); err != nil {
			return nil, fmt.Errorf("newcategoricalmlp: could not zero "+
				"action indices: %v", err)
		}
		p.vm = G.NewTapeMachine(g)
	}

	return p, nil
}

// Network returns the neural network used to compute the policy's
// logits.
func (p *CategoricalMLP) Network() network.NeuralNet {
	return p.net
}

// LogProbNode returns the node holding the log-probabilities of the
// actions last set with LogProbOf. The node has shape (batch).
func (p *CategoricalMLP) LogProbNode() *G.Node {
	return p.logProb
}

// LogProbVal returns the value of LogProbNode from the last run of an
// external VM over the policy's graph.
func (p *CategoricalMLP) LogProbVal() G.Value {
	return p.logProbVal
}

// EntropyNode returns the scalar node holding the mean entropy of the
// batch's action distributions.
func (p *CategoricalMLP) EntropyNode() *G.Node {
	return p.entropy
}

// LogProbOf sets the policy's inputs so that LogProbNode computes the
// log-probabilities of taking actions in states. Actions are discrete
// action indices, one per state. The caller runs a VM over the graph
// to materialize the node's value.
func (p *CategoricalMLP) LogProbOf(states, actions []float64) error {
	if len(actions) != p.batch {
		return fmt.Errorf("logprobof: expected %v actions, got %v", p.batch,
			len(actions))
	}

	if err := p.net.SetInput(states); err != nil {
		return fmt.Errorf("logprobof: could not set state input: %v", err)
	}

	oneHot := make([]float64, p.batch*p.numActions)
	for i, a := range actions {
		index := int(a)
		if index < 0 || index >= p.numActions {
			return fmt.Errorf("logprobof: action %v out of range [0, %v)",
				index, p.numActions)
		}
		oneHot[i*p.numActions+index] = 1.0
	}

	indices := tensor.New(tensor.WithShape(p.batch, p.numActions),
		tensor.WithBacking(oneHot))
	return G.Let(p.actionIndices, indices)
}

// SelectAction samples an action for the observation obs and returns
// the action together with its log-probability under the current
// policy. In evaluation mode the highest-probability action is chosen
// instead of sampling.
func (p *CategoricalMLP) SelectAction(obs []float64) (*mat.VecDense,
	float64, error) {
	if p.batch != 1 {
		return nil, 0, fmt.Errorf("selectaction: policy has batch size "+
			"%v, action selection requires 1", p.batch)
	}

	if err := p.net.SetInput(obs); err != nil {
		return nil, 0, fmt.Errorf("selectaction: could not set input: %v",
			err)
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, 0, fmt.Errorf("selectaction: could not run policy "+
			"network: %v", err)
	}
	p.vm.Reset()

	logits := p.net.Output()[0].Data().([]float64)
	probs, logSumExp := softmax(logits)

	var action int
	if p.eval {
		action = floats.MaxIdx(probs)
	} else {
		dist := distuv.NewCategorical(probs, p.source)
		action = int(dist.Rand())
	}
	logProb := logits[action] - logSumExp

	return mat.NewVecDense(1, []float64{float64(action)}), logProb, nil
}

// Eval sets the policy to evaluation mode.
func (p *CategoricalMLP) Eval() { p.eval = true }

// Train sets the policy to training mode.
func (p *CategoricalMLP) Train() { p.eval = false }

// IsEval returns whether the policy is in evaluation mode.
func (p *CategoricalMLP) IsEval() bool { return p.eval }

// softmax returns the softmax of logits together with their
// log-sum-exp. The computation subtracts the maximum logit first so
// that no exponential overflows.
func softmax(logits []float64) ([]float64, float64) {
	max := floats.Max(logits)

	probs := make([]float64, len(logits))
	sum := 0.0
	for i, l := range logits {
		probs[i] = math.Exp(l - max)
		sum += probs[i]
	}
	floats.Scale(1/sum, probs)

	return probs, max + math.Log(sum)
}

// LogSumExp calculates the log of the summed exponentials along axis
// of the input node in a numerically stable way.
func LogSumExp(a *G.Node, axis int) *G.Node {
	max := G.Must(G.Max(a, axis))

	exponent := G.Must(G.BroadcastSub(a, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, axis))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}
