// Package clock provides the discrete simulation clock with a time budget.
package clock

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTau is returned when the step size is not a positive finite number.
var ErrInvalidTau = errors.New("tau must be a positive finite number")

// DefaultRefillIncrement is the budget added when a clock running
// indefinitely drops to its low-water mark.
const DefaultRefillIncrement = 1.0

// Clock tracks simulated time in fixed steps of Tau. Time only advances
// while there is budget left in Remaining.
//
// Clock is not safe for concurrent use; the simulator serializes access.
type Clock struct {
	time            float64
	tau             float64
	remaining       float64
	runIndefinitely bool
	refill          float64
}

// zeroTolerance, scaled by tau, absorbs the residue left after spending a
// budget in fixed steps.
const zeroTolerance = 1e-9

// Option configures a Clock.
type Option func(*Clock)

// WithBudget sets the initial time budget.
func WithBudget(budget float64) Option {
	return func(c *Clock) { c.remaining = budget }
}

// WithRunIndefinitely makes the clock refill its budget automatically.
func WithRunIndefinitely(on bool) Option {
	return func(c *Clock) { c.runIndefinitely = on }
}

// WithRefillIncrement overrides DefaultRefillIncrement.
func WithRefillIncrement(inc float64) Option {
	return func(c *Clock) {
		if inc > 0 {
			c.refill = inc
		}
	}
}

// New creates a clock at time zero with step size tau.
func New(tau float64, opts ...Option) (*Clock, error) {
	if !(tau > 0) || math.IsInf(tau, 0) {
		return nil, fmt.Errorf("clock: %w (got %v)", ErrInvalidTau, tau)
	}
	c := &Clock{tau: tau, refill: DefaultRefillIncrement}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Advance moves time forward by one tick if budget allows. It returns
// false when the clock is paused (no budget left).
func (c *Clock) Advance() bool {
	if c.runIndefinitely && c.remaining <= c.tau {
		c.remaining += c.refill
	}
	if c.exhausted() {
		return false
	}
	c.time += c.tau
	c.remaining -= c.tau
	if c.exhausted() {
		c.remaining = 0
	}
	return true
}

// AddBudget extends the remaining time budget. Negative values are ignored.
func (c *Clock) AddBudget(d float64) {
	if d > 0 {
		c.remaining += d
	}
}

// Pause drops any remaining budget and stops automatic refills.
func (c *Clock) Pause() {
	c.remaining = 0
	c.runIndefinitely = false
}

// SetRunIndefinitely toggles automatic refills.
func (c *Clock) SetRunIndefinitely(on bool) { c.runIndefinitely = on }

// Time returns the current simulated time.
func (c *Clock) Time() float64 { return c.time }

// Tau returns the step size.
func (c *Clock) Tau() float64 { return c.tau }

// Remaining returns the remaining time budget.
func (c *Clock) Remaining() float64 { return c.remaining }

// RunIndefinitely reports whether automatic refills are on.
func (c *Clock) RunIndefinitely() bool { return c.runIndefinitely }

// Paused reports whether the next Advance would fail.
func (c *Clock) Paused() bool {
	return !c.runIndefinitely && c.exhausted()
}

func (c *Clock) exhausted() bool { return c.remaining <= c.tau*zeroTolerance }
