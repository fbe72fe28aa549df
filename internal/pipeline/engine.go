// Package pipeline runs one simulation tick over a network graph: advance
// the clock, integrate neurons, propagate spikes, decay plastic state and
// prune weak synapses, always in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/silicon/internal/clock"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/synapses"
)

// DefaultPruneThreshold removes synapses whose weight falls below it.
const DefaultPruneThreshold = 0.1

// PlasticityMode selects what happens to weight deltas emitted by STDP
// pairings.
type PlasticityMode string

const (
	// ModeReward queues deltas for later reward modulation.
	ModeReward PlasticityMode = "reward"
	// ModeDirect applies deltas to the weight immediately.
	ModeDirect PlasticityMode = "direct"
)

// Config holds tunable parameters for the tick pipeline.
type Config struct {
	// PruneThreshold is the weight below which synapses are removed. Default: 0.1.
	PruneThreshold float64

	// Workers bounds parallel neuron integration. 0 or 1 integrates
	// sequentially.
	Workers int

	// Mode is the plasticity mode. Default: reward.
	Mode PlasticityMode

	// DecayInterval and DecayAmount configure periodic weight decay.
	// Disabled when either is zero.
	DecayInterval float64
	DecayAmount   float64
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		PruneThreshold: DefaultPruneThreshold,
		Workers:        1,
		Mode:           ModeReward,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PruneThreshold < 0 {
		return errors.New("pipeline: prune threshold must be >= 0")
	}
	if c.Workers < 0 {
		return errors.New("pipeline: workers must be >= 0")
	}
	switch c.Mode {
	case ModeReward, ModeDirect, "":
	default:
		return fmt.Errorf("pipeline: unknown plasticity mode %q", c.Mode)
	}
	if c.DecayInterval < 0 || c.DecayAmount < 0 {
		return errors.New("pipeline: decay interval and amount must be >= 0")
	}
	return nil
}

// Sink receives weight deltas emitted in reward mode.
type Sink interface {
	Push(ev models.DeferredStdpEvent)
}

// TickResult summarizes one Step.
type TickResult struct {
	// Advanced is false when the clock was paused and nothing ran.
	Advanced bool
	Time     float64

	// Spikes fired this tick, in neuron ID order.
	Spikes []models.Spike

	// Propagated counts synaptic injections; Skipped counts injections
	// dropped because the target neuron no longer exists.
	Propagated int
	Skipped    int

	// Emitted counts STDP pairings that produced a delta.
	Emitted int

	Decayed bool
	Pruned  []models.SynapseID
}

// Engine runs the per-tick pipeline. It holds no per-tick state between
// calls other than the decay schedule.
type Engine struct {
	config Config
	clock  *clock.Clock
	graph  *network.Graph
	sink   Sink
	decay  *synapses.Decay
	logger *slog.Logger
}

// NewEngine creates a pipeline over clk and g. sink may be nil in direct
// mode; in reward mode a nil sink drops emitted deltas.
func NewEngine(clk *clock.Clock, g *network.Graph, sink Sink, config Config, logger *slog.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Mode == "" {
		config.Mode = ModeReward
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		config: config,
		clock:  clk,
		graph:  g,
		sink:   sink,
		logger: logger,
	}
	if config.DecayInterval > 0 && config.DecayAmount > 0 {
		e.decay = synapses.NewDecay(config.DecayInterval, config.DecayAmount, clk.Time())
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Step runs one tick. It returns an error only if ctx is cancelled during
// parallel integration.
func (e *Engine) Step(ctx context.Context) (TickResult, error) {
	// Step 1: Advance the clock.
	if !e.clock.Advance() {
		return TickResult{Time: e.clock.Time()}, nil
	}
	now := e.clock.Time()
	tau := e.clock.Tau()
	res := TickResult{Advanced: true, Time: now}

	// Step 2: Integrate every neuron, then record spikes and register
	// them with plastic synapses. Integration finishes for all neurons
	// before any spike is propagated.
	fired, err := e.integrate(ctx, tau)
	if err != nil {
		return res, err
	}
	for _, id := range fired {
		entry, _ := e.graph.Neuron(id)
		entry.Recorder.Record(now)
		res.Spikes = append(res.Spikes, models.Spike{Time: now, Neuron: id})
		res.Emitted += e.register(id, now)
	}

	// Step 3: Propagate this tick's spikes.
	for _, spike := range res.Spikes {
		for _, sid := range e.graph.Outgoing(spike.Neuron) {
			s, ok := e.graph.Synapse(sid)
			if !ok {
				continue
			}
			post, ok := e.graph.Neuron(s.Postsynaptic())
			if !ok {
				res.Skipped++
				e.logger.Debug("skip propagation to missing neuron",
					"synapse", sid, "neuron", s.Postsynaptic())
				continue
			}
			post.Model.InjectCurrent(s.Type().Sign() * s.Weight())
			res.Propagated++
		}
	}

	// Step 4: Decay plastic state, then apply scheduled weight decay.
	for _, sid := range e.graph.SynapseIDs() {
		s, _ := e.graph.Synapse(sid)
		s.Update(tau)
	}
	if e.decay.Due(now) {
		for _, sid := range e.graph.SynapseIDs() {
			s, _ := e.graph.Synapse(sid)
			e.decay.Apply(s)
		}
		res.Decayed = true
	}

	// Step 5: Prune weak synapses.
	res.Pruned = Prune(e.graph, e.config.PruneThreshold)
	if len(res.Pruned) > 0 {
		e.logger.Debug("pruned synapses", "count", len(res.Pruned), "time", now)
	}

	return res, nil
}

// integrate runs Integrate on every neuron and returns the IDs that fired,
// in ascending order.
func (e *Engine) integrate(ctx context.Context, tau float64) ([]models.NeuronID, error) {
	ids := e.graph.NeuronIDs()
	flags := make([]bool, len(ids))

	workers := e.config.Workers
	if workers <= 1 || len(ids) < 2*workers {
		for i, id := range ids {
			entry, _ := e.graph.Neuron(id)
			flags[i] = entry.Model.Integrate(tau)
		}
	} else {
		// Each neuron only touches its own state, so chunks can run
		// concurrently.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		chunk := (len(ids) + workers - 1) / workers
		for start := 0; start < len(ids); start += chunk {
			end := min(start+chunk, len(ids))
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				for i := start; i < end; i++ {
					entry, _ := e.graph.Neuron(ids[i])
					flags[i] = entry.Model.Integrate(tau)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("integrate neurons: %w", err)
		}
	}

	var fired []models.NeuronID
	for i, f := range flags {
		if f {
			fired = append(fired, ids[i])
		}
	}
	return fired, nil
}

// register notifies every STDP synapse touching id of its spike and routes
// emitted deltas. It returns the number of deltas emitted.
func (e *Engine) register(id models.NeuronID, now float64) int {
	emitted := 0
	for _, sid := range e.graph.Outgoing(id) {
		if st, ok := e.stdp(sid); ok {
			if delta, ok := st.RegisterPreSpike(); ok {
				e.emit(sid, st, delta, now)
				emitted++
			}
		}
	}
	for _, sid := range e.graph.Incoming(id) {
		if st, ok := e.stdp(sid); ok {
			if delta, ok := st.RegisterPostSpike(); ok {
				e.emit(sid, st, delta, now)
				emitted++
			}
		}
	}
	return emitted
}

func (e *Engine) stdp(sid models.SynapseID) (*synapses.STDP, bool) {
	s, ok := e.graph.Synapse(sid)
	if !ok {
		return nil, false
	}
	st, ok := s.(*synapses.STDP)
	return st, ok
}

func (e *Engine) emit(sid models.SynapseID, st *synapses.STDP, delta, now float64) {
	if e.config.Mode == ModeDirect {
		st.ApplyDelta(delta, 1)
		return
	}
	if e.sink != nil {
		e.sink.Push(models.DeferredStdpEvent{Synapse: sid, DeltaWeight: delta, Time: now})
	}
}
