// Package gae implements generalized advantage estimation -
// GAE(λ) - following https://arxiv.org/abs/1506.02438
package gae

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Estimator computes per-step advantage and return estimates for
// complete trajectories.
//
// With λ = 1 the estimate degenerates to the full Monte-Carlo
// discounted return minus the value baseline; with λ = 0 it is the
// one-step TD residual.
type Estimator struct {
	gamma  float64 // Discount factor ℽ
	lambda float64 // λ for GAE(λ) calculation
}

// New returns a new Estimator. Both gamma and lambda must be in
// [0, 1].
func New(gamma, lambda float64) (Estimator, error) {
	if gamma < 0 || gamma > 1 {
		return Estimator{}, fmt.Errorf("new: discount must be in [0, 1], "+
			"got %v", gamma)
	}
	if lambda < 0 || lambda > 1 {
		return Estimator{}, fmt.Errorf("new: gae lambda must be in [0, 1], "+
			"got %v", lambda)
	}

	return Estimator{gamma: gamma, lambda: lambda}, nil
}

// Gamma returns the discount factor of the Estimator
func (e Estimator) Gamma() float64 {
	return e.gamma
}

// Lambda returns the λ of the Estimator
func (e Estimator) Lambda() float64 {
	return e.lambda
}

// Estimate computes the GAE(λ) advantages and returns for a single
// trajectory with the given rewards and state-value estimates. The
// bootstrap argument should be 0 if the trajectory ended in a terminal
// state and the value estimate of the state following the trajectory
// otherwise.
//
// The advantage recursion
//
//	δ_t = r_t + ℽ·V(s_{t+1}) − V(s_t)
//	A_t = δ_t + ℽλ·A_{t+1}
//
// is evaluated as a single backward sweep with an accumulator, and
// return_t = A_t + V(s_t). Both output slices have the same length and
// order as the inputs. A NaN or Inf anywhere in the outputs is an
// error: a corrupted estimate must never reach a gradient update.
func (e Estimator) Estimate(rewards, values []float64,
	bootstrap float64) ([]float64, []float64, error) {
	if len(rewards) != len(values) {
		return nil, nil, fmt.Errorf("estimate: rewards and values must have "+
			"equal lengths \n\twant(%v)\n\thave(%v)", len(rewards),
			len(values))
	}
	if len(rewards) == 0 {
		return []float64{}, []float64{}, nil
	}

	T := len(rewards)
	advantages := make([]float64, T)
	returns := make([]float64, T)

	var acc float64
	for t := T - 1; t >= 0; t-- {
		next := bootstrap
		if t < T-1 {
			next = values[t+1]
		}

		delta := rewards[t] + e.gamma*next - values[t]
		acc = delta + e.gamma*e.lambda*acc

		advantages[t] = acc
		returns[t] = acc + values[t]
	}

	if err := checkFinite(advantages); err != nil {
		return nil, nil, fmt.Errorf("estimate: advantages: %v", err)
	}
	if err := checkFinite(returns); err != nil {
		return nil, nil, fmt.Errorf("estimate: returns: %v", err)
	}

	return advantages, returns, nil
}

// EstimateAll computes advantages and returns for a batch of
// trajectories. Each trajectory's backward recursion depends only on
// its own records, so trajectories are processed concurrently. The
// output slices are indexed identically to the inputs.
func (e Estimator) EstimateAll(rewards, values [][]float64,
	bootstraps []float64) ([][]float64, [][]float64, error) {
	if len(rewards) != len(values) || len(rewards) != len(bootstraps) {
		return nil, nil, fmt.Errorf("estimateall: inconsistent batch sizes "+
			"(%v rewards, %v values, %v bootstraps)", len(rewards),
			len(values), len(bootstraps))
	}

	advantages := make([][]float64, len(rewards))
	returns := make([][]float64, len(rewards))
	errs := make([]error, len(rewards))

	var wg sync.WaitGroup
	for i := range rewards {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			advantages[i], returns[i], errs[i] = e.Estimate(rewards[i],
				values[i], bootstraps[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("estimateall: trajectory %v: %v", i,
				err)
		}
	}

	return advantages, returns, nil
}

// checkFinite returns an error if x contains a NaN or Inf
func checkFinite(x []float64) error {
	if floats.HasNaN(x) {
		return fmt.Errorf("value is NaN")
	}
	for _, v := range x {
		if math.IsInf(v, 0) {
			return fmt.Errorf("value is Inf")
		}
	}
	return nil
}
