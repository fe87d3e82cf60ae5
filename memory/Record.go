// Package memory implements experience memory for on-policy agents
package memory

// Record is a single transition of agent-environment interaction. A
// Record is immutable once appended to a Buffer: the slices it holds
// must not be modified by the caller afterwards.
//
// LogProb and Value are the log-probability of the action under the
// behaviour policy and the state-value estimate at collection time.
// Value is kept for diagnostics and bootstrap fallbacks only; updates
// recompute values with the current value function.
type Record struct {
	State   []float64
	Action  []float64
	Reward  float64
	Done    bool
	LogProb float64
	Value   float64

	// Bootstrap continues the advantage recursion past this record
	// when it ends an episode. It is zero when the episode reached a
	// terminal state and the value estimate of the successor state
	// when the episode was cut off by a step limit.
	Bootstrap float64
}
