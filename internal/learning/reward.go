// Package learning implements the reward-modulated side of STDP: a bounded
// queue of deferred weight changes, a scalar reward computed from output
// spike counts, and the presentation loop that cycles input classes.
package learning

import "math"

// zeroTargetEpsilon replaces a zero target spike count in the reward
// denominator.
const zeroTargetEpsilon = 1e-9

// SpikeError is the distance between an observed and a target spike count.
func SpikeError(observed, target float64) float64 {
	return math.Abs(target - observed)
}

// Reward scores a presentation window. The correct class should fire
// target spikes and every other class none; the larger of the two errors
// sets the reward 1 - err/target, clamped to [-1, 1].
func Reward(correct, wrong, target float64) float64 {
	err := max(SpikeError(correct, target), SpikeError(wrong, 0))
	denom := target
	if denom == 0 {
		denom = zeroTargetEpsilon
	}
	return clamp(1-err/denom, -1, 1)
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(lo, math.Min(hi, x))
}
