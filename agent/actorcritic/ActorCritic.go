// Package actorcritic implements on-policy actor-critic agents with
// generalized advantage estimation.
package actorcritic

import (
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gorl/agent/policy"
	"github.com/samuelfneumann/gorl/environment"
	"github.com/samuelfneumann/gorl/gae"
	"github.com/samuelfneumann/gorl/initwfn"
	"github.com/samuelfneumann/gorl/memory"
	"github.com/samuelfneumann/gorl/network"
	"github.com/samuelfneumann/gorl/preprocess"
	"github.com/samuelfneumann/gorl/solver"
	ts "github.com/samuelfneumann/gorl/timestep"
)

// ActorCritic is an on-policy actor-critic agent. A categorical
// policy network selects actions, a separate value network estimates
// state values, and generalized advantage estimation turns collected
// rewards into advantages for the policy gradient. The two networks
// are updated by independent optimizers.
//
// Action selection always runs on behaviour networks with batch size
// 1. Gradient updates run on training networks whose batch size
// matches the drained batch; computational graphs have static shapes,
// so training networks, their VMs and their optimizers are built once
// per distinct batch size and cached. Weights are copied from the
// behaviour networks before each update and back afterwards.
type ActorCritic struct {
	behaviour *policy.CategoricalMLP
	valueFn   network.NeuralNet
	valueVM   G.VM

	policyHeads map[int]*policyHead
	valueHeads  map[int]*valueHead

	estimator gae.Estimator
	memory    *memory.Buffer
	pipeline  preprocess.Pipeline
	scheduler *Scheduler

	staging     []memory.Record
	stagingSize int

	config   Config
	init     G.InitWFn
	features int
	actions  int
	seed     uint64

	// collection-time quantities for the transition currently in
	// flight between SelectAction and Observe
	prevObs     []float64
	lastLogProb float64
	lastValue   float64

	lastPolicyLoss float64
	lastValueLoss  float64

	eval bool
	log  zerolog.Logger
}

// policyHead is a training-time view of the policy: a policy network
// with batch size equal to the update batch, the policy gradient loss
// over it, and the VM and optimizer that step it.
type policyHead struct {
	pol        *policy.CategoricalMLP
	advantages *G.Node
	lossVal    G.Value
	vm         G.VM
	solver     *solver.Solver
}

// valueHead is the value-function analogue of policyHead.
type valueHead struct {
	net     network.NeuralNet
	targets *G.Node
	lossVal G.Value
	vm      G.VM
	solver  *solver.Solver
}

// newActorCritic creates a new ActorCritic from a validated Config.
func newActorCritic(c Config, env environment.Environment,
	seed uint64) (*ActorCritic, error) {
	actionSpec := env.ActionSpec()
	if actionSpec.Cardinality != environment.Discrete {
		return nil, fmt.Errorf("newactorcritic: only discrete action " +
			"spaces are supported")
	}
	if actionSpec.Shape.Len() != 1 {
		return nil, fmt.Errorf("newactorcritic: actions must be "+
			"1-dimensional, got %v dimensions", actionSpec.Shape.Len())
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := int(actionSpec.UpperBound.AtVec(0)) + 1

	wInit := c.Init
	if wInit == nil {
		var err error
		wInit, err = initwfn.NewGlorotU(1.0)
		if err != nil {
			return nil, fmt.Errorf("newactorcritic: could not create "+
				"default weight initializer: %v", err)
		}
	}
	init := wInit.InitWFn()

	behaviour, err := policy.NewCategoricalMLP(features, numActions, 1,
		G.NewGraph(), c.Network, init, seed)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: could not create policy: "+
			"%v", err)
	}

	valueFn, err := network.FromConfig(features, 1, 1, G.NewGraph(),
		c.ValueFunction, init)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: could not create value "+
			"function: %v", err)
	}
	valueVM := G.NewTapeMachine(valueFn.Graph())

	mem, err := c.Memory.Create()
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}

	pipeline, err := preprocess.NewPipeline(c.Preprocessing)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}

	scheduler, err := NewScheduler(c.Update.UpdateMode,
		c.Update.UpdateInterval, c.Update.DoUpdates)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}

	estimator, err := gae.New(c.Discount, c.GAELambda)
	if err != nil {
		return nil, fmt.Errorf("newactorcritic: %v", err)
	}

	stagingSize := c.Observe.BufferSize
	if stagingSize < 1 {
		stagingSize = 1
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().
		Str("agent", string(TypeActorCritic)).Logger()

	return &ActorCritic{
		behaviour:   behaviour,
		valueFn:     valueFn,
		valueVM:     valueVM,
		policyHeads: make(map[int]*policyHead),
		valueHeads:  make(map[int]*valueHead),
		estimator:   estimator,
		memory:      mem,
		pipeline:    pipeline,
		scheduler:   scheduler,
		staging:     make([]memory.Record, 0, stagingSize),
		stagingSize: stagingSize,
		config:      c,
		init:        init,
		features:    features,
		actions:     numActions,
		seed:        seed,
		log:         logger,
	}, nil
}

// SetLogger replaces the agent's logger. Diagnostics about each
// update are emitted through it.
func (a *ActorCritic) SetLogger(l zerolog.Logger) {
	a.log = l
}

// ObserveFirst records the first timestep of an episode.
func (a *ActorCritic) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		a.log.Warn().Int("step", t.Number).
			Msg("observefirst called on non-first timestep")
	}
	a.prevObs = a.observe(t.Observation)
	return nil
}

// SelectAction samples an action for the timestep's observation from
// the behaviour policy. The action's log-probability and the state's
// value estimate are cached so that Observe can store them with the
// resulting transition.
func (a *ActorCritic) SelectAction(t ts.TimeStep) *mat.VecDense {
	obs := a.observe(t.Observation)

	action, logProb, err := a.behaviour.SelectAction(obs)
	if err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}

	value, err := a.stateValue(obs)
	if err != nil {
		panic(fmt.Sprintf("selectaction: %v", err))
	}

	a.prevObs = obs
	a.lastLogProb = logProb
	a.lastValue = value

	return action
}

// Observe records that action was taken in the previously observed
// timestep, leading to nextStep. The transition is staged and flushed
// to experience memory once the staging buffer fills or the episode
// ends. Episodes that end at a step limit store a bootstrap value for
// the successor state, since the advantage recursion must not treat
// a cutoff as a terminal state.
func (a *ActorCritic) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if a.eval {
		return nil
	}

	rec := memory.Record{
		State:   a.prevObs,
		Action:  vectorData(action),
		Reward:  nextStep.Reward,
		Done:    nextStep.Last(),
		LogProb: a.lastLogProb,
		Value:   a.lastValue,
	}

	if nextStep.Last() && !nextStep.TerminalEnd() {
		bootstrap, err := a.stateValue(a.observe(nextStep.Observation))
		if err != nil {
			return fmt.Errorf("observe: could not bootstrap cutoff "+
				"episode: %v", err)
		}
		rec.Bootstrap = bootstrap
	}

	a.staging = append(a.staging, rec)
	if len(a.staging) >= a.stagingSize || rec.Done {
		a.flush()
	}

	a.scheduler.RecordStep()
	if nextStep.Last() {
		a.scheduler.RecordEpisode()
	}

	return nil
}

// EndEpisode performs per-episode cleanup.
func (a *ActorCritic) EndEpisode() {}

// Step updates the agent's policy and value function if an update is
// due. The update drains the most recent experience from memory,
// recomputes state values with the current value function, estimates
// advantages, and steps the two networks with their own optimizers. A
// failure in one network's update does not prevent the other's, but
// any failure is reported to the caller.
func (a *ActorCritic) Step() error {
	if a.eval || !a.scheduler.ShouldUpdate() {
		return nil
	}
	defer a.scheduler.Updated()

	a.flush()

	trajectories := a.drain()
	if len(trajectories) == 0 {
		a.log.Debug().Msg("update due but no complete experience available")
		return nil
	}

	batch, err := a.assembleBatch(trajectories)
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	policyErr := a.updatePolicy(batch)
	valueErr := a.updateValue(batch)

	a.log.Info().
		Int("batch", batch.size).
		Int("trajectories", len(trajectories)).
		Float64("policy_loss", a.lastPolicyLoss).
		Float64("value_loss", a.lastValueLoss).
		Float64("approx_kl", batch.approxKL).
		Msg("update")

	if policyErr != nil && valueErr != nil {
		return fmt.Errorf("step: policy update: %v; value function "+
			"update: %v", policyErr, valueErr)
	}
	if policyErr != nil {
		return fmt.Errorf("step: policy update: %v", policyErr)
	}
	if valueErr != nil {
		return fmt.Errorf("step: value function update: %v", valueErr)
	}
	return nil
}

// Eval sets the agent to evaluation mode: actions are chosen
// greedily and no experience is recorded or learned from.
func (a *ActorCritic) Eval() {
	a.eval = true
	a.behaviour.Eval()
}

// Train sets the agent to training mode.
func (a *ActorCritic) Train() {
	a.eval = false
	a.behaviour.Train()
}

// IsEval returns whether the agent is in evaluation mode.
func (a *ActorCritic) IsEval() bool { return a.eval }

// LastLosses returns the policy and value function losses measured at
// the agent's most recent update.
func (a *ActorCritic) LastLosses() (policyLoss, valueLoss float64) {
	return a.lastPolicyLoss, a.lastValueLoss
}

// observe preprocesses a raw environment observation.
func (a *ActorCritic) observe(obs mat.Vector) []float64 {
	return a.pipeline.Apply(vectorData(obs))
}

// flush moves staged transitions into experience memory.
func (a *ActorCritic) flush() {
	for _, rec := range a.staging {
		a.memory.Append(rec)
	}
	a.staging = a.staging[:0]
}

// drain removes the update batch from experience memory. When
// sampling episodes, the batch is the most recent complete episodes;
// otherwise it is a flat window of the most recent timesteps, split
// into trajectory segments at episode boundaries.
func (a *ActorCritic) drain() [][]memory.Record {
	if a.config.SampleEpisodes {
		return a.memory.DrainEpisodes(a.config.Update.BatchSize)
	}

	records := a.memory.Drain(a.config.Update.BatchSize)
	trajectories := make([][]memory.Record, 0)
	start := 0
	for i, rec := range records {
		if rec.Done {
			trajectories = append(trajectories, records[start:i+1])
			start = i + 1
		}
	}
	if start < len(records) {
		trajectories = append(trajectories, records[start:])
	}
	return trajectories
}

// batch is an assembled update batch: flattened states and actions,
// with advantages and value targets computed per trajectory.
type batch struct {
	size        int
	states      []float64
	actions     []float64
	oldLogProbs []float64
	advantages  []float64
	returns     []float64
	approxKL    float64
}

// assembleBatch flattens trajectories and computes their advantages
// and returns. State values are recomputed with the current value
// function rather than read from the records, so that value targets
// and advantages reflect the latest value estimates. A trajectory
// ending in a terminal state bootstraps from zero; one ending at a
// step-limit cutoff bootstraps from the stored successor value; a
// trailing trajectory that is still in progress bootstraps from its
// final state's value estimate.
func (a *ActorCritic) assembleBatch(
	trajectories [][]memory.Record) (*batch, error) {
	n := 0
	for _, trajectory := range trajectories {
		n += len(trajectory)
	}

	b := &batch{
		size:        n,
		states:      make([]float64, 0, n*a.features),
		actions:     make([]float64, 0, n),
		oldLogProbs: make([]float64, 0, n),
	}
	for _, trajectory := range trajectories {
		for _, rec := range trajectory {
			b.states = append(b.states, rec.State...)
			b.actions = append(b.actions, rec.Action[0])
			b.oldLogProbs = append(b.oldLogProbs, rec.LogProb)
		}
	}

	values, err := a.batchValues(b.states, n)
	if err != nil {
		return nil, fmt.Errorf("assemblebatch: %v", err)
	}

	rewards := make([][]float64, len(trajectories))
	trajValues := make([][]float64, len(trajectories))
	bootstraps := make([]float64, len(trajectories))

	offset := 0
	for i, trajectory := range trajectories {
		rewards[i] = make([]float64, len(trajectory))
		for j, rec := range trajectory {
			rewards[i][j] = rec.Reward
		}
		trajValues[i] = values[offset : offset+len(trajectory)]
		offset += len(trajectory)

		last := trajectory[len(trajectory)-1]
		switch {
		case last.Done:
			bootstraps[i] = last.Bootstrap
		default:
			bootstraps[i] = last.Value
		}
	}

	advantages, returns, err := a.estimator.EstimateAll(rewards, trajValues,
		bootstraps)
	if err != nil {
		return nil, fmt.Errorf("assemblebatch: %v", err)
	}

	b.advantages = make([]float64, 0, n)
	b.returns = make([]float64, 0, n)
	for i := range advantages {
		b.advantages = append(b.advantages, advantages[i]...)
		b.returns = append(b.returns, returns[i]...)
	}

	return b, nil
}

// batchValues computes the current value function's estimates for n
// flattened states using the training head for that batch size.
func (a *ActorCritic) batchValues(states []float64, n int) ([]float64,
	error) {
	head, err := a.valueHead(n)
	if err != nil {
		return nil, err
	}

	if err := network.Set(head.net, a.valueFn); err != nil {
		return nil, fmt.Errorf("batchvalues: could not copy value "+
			"function weights: %v", err)
	}

	if err := head.predict(states, n); err != nil {
		return nil, fmt.Errorf("batchvalues: %v", err)
	}

	values := make([]float64, n)
	copy(values, head.net.Output()[0].Data().([]float64))
	return values, nil
}

// updatePolicy performs one policy gradient step on the batch. The
// loss is checked before any weights change: a non-finite loss aborts
// the step so that corrupted gradients never reach the optimizer.
func (a *ActorCritic) updatePolicy(b *batch) error {
	head, err := a.policyHead(b.size)
	if err != nil {
		return err
	}

	if err := network.Set(head.pol.Network(),
		a.behaviour.Network()); err != nil {
		return fmt.Errorf("updatepolicy: could not copy policy weights: %v",
			err)
	}

	if err := head.pol.LogProbOf(b.states, b.actions); err != nil {
		return fmt.Errorf("updatepolicy: %v", err)
	}
	advantages := tensor.New(tensor.WithShape(b.size),
		tensor.WithBacking(b.advantages))
	if err := G.Let(head.advantages, advantages); err != nil {
		return fmt.Errorf("updatepolicy: could not set advantages: %v", err)
	}

	if err := head.vm.RunAll(); err != nil {
		head.vm.Reset()
		return fmt.Errorf("updatepolicy: could not run policy graph: %v",
			err)
	}

	loss := head.lossVal.Data().(float64)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		head.vm.Reset()
		return fmt.Errorf("updatepolicy: policy loss is %v", loss)
	}
	a.lastPolicyLoss = loss

	newLogProbs := head.pol.LogProbVal().Data().([]float64)
	b.approxKL = stat.Mean(b.oldLogProbs, nil) - stat.Mean(newLogProbs, nil)

	if err := head.solver.Step(head.pol.Network().Model()); err != nil {
		head.vm.Reset()
		return fmt.Errorf("updatepolicy: could not step optimizer: %v", err)
	}
	head.vm.Reset()

	if err := network.Set(a.behaviour.Network(),
		head.pol.Network()); err != nil {
		return fmt.Errorf("updatepolicy: could not copy updated weights "+
			"back: %v", err)
	}
	return nil
}

// updateValue performs one regression step of the value function
// towards the batch's returns.
func (a *ActorCritic) updateValue(b *batch) error {
	head, err := a.valueHead(b.size)
	if err != nil {
		return err
	}

	// Weights were already copied to the head when the batch's
	// values were computed.
	if err := head.net.SetInput(b.states); err != nil {
		return fmt.Errorf("updatevalue: could not set state input: %v", err)
	}
	targets := tensor.New(tensor.WithShape(b.size, 1),
		tensor.WithBacking(b.returns))
	if err := G.Let(head.targets, targets); err != nil {
		return fmt.Errorf("updatevalue: could not set targets: %v", err)
	}

	if err := head.vm.RunAll(); err != nil {
		head.vm.Reset()
		return fmt.Errorf("updatevalue: could not run value graph: %v", err)
	}

	loss := head.lossVal.Data().(float64)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		head.vm.Reset()
		return fmt.Errorf("updatevalue: value loss is %v", loss)
	}
	a.lastValueLoss = loss

	if err := head.solver.Step(head.net.Model()); err != nil {
		head.vm.Reset()
		return fmt.Errorf("updatevalue: could not step optimizer: %v", err)
	}
	head.vm.Reset()

	if err := network.Set(a.valueFn, head.net); err != nil {
		return fmt.Errorf("updatevalue: could not copy updated weights "+
			"back: %v", err)
	}
	return nil
}

// policyHead returns the cached policy training head for batch size
// n, constructing it on first use.
func (a *ActorCritic) policyHead(n int) (*policyHead, error) {
	if head, ok := a.policyHeads[n]; ok {
		return head, nil
	}

	g := G.NewGraph()
	pol, err := policy.NewCategoricalMLP(a.features, a.actions, n, g,
		a.config.Network, a.init, a.seed)
	if err != nil {
		return nil, fmt.Errorf("policyhead: could not create policy: %v",
			err)
	}

	head := &policyHead{pol: pol}
	head.advantages = G.NewVector(g, tensor.Float64, G.WithShape(n),
		G.WithName("advantages"))

	weighted := G.Must(G.HadamardProd(pol.LogProbNode(), head.advantages))
	loss := G.Must(G.Neg(G.Must(G.Mean(weighted))))
	if a.config.WeightEntropy > 0 {
		bonus := G.Must(G.Mul(G.NewConstant(a.config.WeightEntropy),
			pol.EntropyNode()))
		loss = G.Must(G.Sub(loss, bonus))
	}
	G.Read(loss, &head.lossVal)

	if _, err := G.Grad(loss, pol.Network().Learnables()...); err != nil {
		return nil, fmt.Errorf("policyhead: could not compute gradient: %v",
			err)
	}
	head.vm = G.NewTapeMachine(g,
		G.BindDualValues(pol.Network().Learnables()...))

	head.solver, err = a.config.Optimizer.Create(n)
	if err != nil {
		return nil, fmt.Errorf("policyhead: %v", err)
	}

	a.policyHeads[n] = head
	return head, nil
}

// valueHead returns the cached value function training head for batch
// size n, constructing it on first use.
func (a *ActorCritic) valueHead(n int) (*valueHead, error) {
	if head, ok := a.valueHeads[n]; ok {
		return head, nil
	}

	g := G.NewGraph()
	net, err := network.FromConfig(a.features, n, 1, g,
		a.config.ValueFunction, a.init)
	if err != nil {
		return nil, fmt.Errorf("valuehead: could not create value "+
			"function: %v", err)
	}

	head := &valueHead{net: net}
	head.targets = G.NewMatrix(g, tensor.Float64, G.WithShape(n, 1),
		G.WithName("valueTargets"))

	prediction := net.Prediction()[0]
	residual := G.Must(G.Sub(prediction, head.targets))
	loss := G.Must(G.Mean(G.Must(G.Square(residual))))
	G.Read(loss, &head.lossVal)

	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("valuehead: could not compute gradient: %v",
			err)
	}
	head.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))

	head.solver, err = a.config.ValueFunctionOptimizer.Create(n)
	if err != nil {
		return nil, fmt.Errorf("valuehead: %v", err)
	}

	a.valueHeads[n] = head
	return head, nil
}

// predict runs the head's forward pass for n states with zeroed
// targets, leaving the value predictions in the network's output.
func (h *valueHead) predict(states []float64, n int) error {
	if err := h.net.SetInput(states); err != nil {
		return fmt.Errorf("predict: could not set state input: %v", err)
	}
	zeros := tensor.New(tensor.WithShape(n, 1),
		tensor.WithBacking(make([]float64, n)))
	if err := G.Let(h.targets, zeros); err != nil {
		return fmt.Errorf("predict: could not zero targets: %v", err)
	}
	if err := h.vm.RunAll(); err != nil {
		h.vm.Reset()
		return fmt.Errorf("predict: could not run value graph: %v", err)
	}
	h.vm.Reset()
	return nil
}

// stateValue computes the current value estimate of a single
// preprocessed observation.
func (a *ActorCritic) stateValue(obs []float64) (float64, error) {
	if err := a.valueFn.SetInput(obs); err != nil {
		return 0, fmt.Errorf("statevalue: could not set input: %v", err)
	}
	if err := a.valueVM.RunAll(); err != nil {
		return 0, fmt.Errorf("statevalue: could not run value function: %v",
			err)
	}
	a.valueVM.Reset()

	switch v := a.valueFn.Output()[0].Data().(type) {
	case float64:
		return v, nil
	case []float64:
		return v[0], nil
	default:
		return 0, fmt.Errorf("statevalue: unexpected value type %T", v)
	}
}

// vectorData copies a vector's elements into a fresh slice.
func vectorData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
