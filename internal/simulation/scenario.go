package simulation

import (
	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/learning"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/store"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name string

	// Config defaults to config.Default() when nil.
	Config *config.SiliconConfig

	// Ticks is how many ticks to run. The run stops early if the clock
	// budget runs out.
	Ticks int

	// Record persists the run to an isolated SQLite store.
	Record bool

	// WeightsEvery captures synapse weights every N ticks (0 = only after
	// the last tick).
	WeightsEvery int

	// BeforeTick, when non-nil, is called before each tick. Use it to
	// inject current or edit weights.
	BeforeTick func(tick int, sim *engine.Simulator)
}

// TickSnapshot captures the outcome of one tick.
type TickSnapshot struct {
	Index    int
	Time     float64
	Spikes   []models.Spike
	Pruned   []models.SynapseID
	Outcome  *learning.Outcome
	QueueLen int

	// Weights is set only on capture ticks.
	Weights map[models.SynapseID]float64
}

// SimulationResult captures every tick and the final simulator state.
type SimulationResult struct {
	Ticks []TickSnapshot
	Final engine.Snapshot
	Sim   *engine.Simulator

	// Store and RunID are set when the scenario recorded.
	Store store.Store
	RunID string
}

// Outcomes returns every reward applied during the run, in order.
func (r SimulationResult) Outcomes() []learning.Outcome {
	var out []learning.Outcome
	for _, ts := range r.Ticks {
		if ts.Outcome != nil {
			out = append(out, *ts.Outcome)
		}
	}
	return out
}

// SpikeTrain returns every spike of the run in firing order.
func (r SimulationResult) SpikeTrain() []models.Spike {
	var out []models.Spike
	for _, ts := range r.Ticks {
		out = append(out, ts.Spikes...)
	}
	return out
}
