// Package engine composes the clock, network, tick pipeline and learning
// loop into a single Simulator with a read/write tick boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nvandessel/silicon/internal/analytics"
	"github.com/nvandessel/silicon/internal/checkpoint"
	"github.com/nvandessel/silicon/internal/clock"
	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/learning"
	"github.com/nvandessel/silicon/internal/logging"
	"github.com/nvandessel/silicon/internal/metrics"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/pipeline"
)

// ErrUnknownSynapse is returned for synapse IDs not in the graph.
var ErrUnknownSynapse = errors.New("unknown synapse")

// Options carries the optional collaborators of a Simulator.
type Options struct {
	Logger *slog.Logger
	Events *logging.EventLogger

	// Recorder persists the run. Nil disables recording.
	Recorder *RunRecorder

	// Watch enables membrane and weight traces.
	Watch *analytics.Config

	Metrics *metrics.Metrics
}

// Simulator owns one network and advances it tick by tick. Tick and Run
// hold the write lock for a whole pipeline pass; accessors take the read
// lock, so readers only ever observe state between ticks.
type Simulator struct {
	mu sync.RWMutex

	config   *config.SiliconConfig
	clock    *clock.Clock
	graph    *network.Graph
	pipeline *pipeline.Engine
	loop     *learning.Loop
	watcher  *analytics.Watcher
	recorder *RunRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	events   *logging.EventLogger

	stats       Stats
	lastOutcome *learning.Outcome
}

// Stats accumulates counters over the lifetime of a Simulator.
type Stats struct {
	Ticks      int `json:"ticks"`
	Spikes     int `json:"spikes"`
	Propagated int `json:"propagated"`
	Skipped    int `json:"skipped"`
	Emitted    int `json:"emitted"`
	Pruned     int `json:"pruned"`
	Rewards    int `json:"rewards"`
}

// New builds the configured network and wires the pipeline and, when
// enabled, the learning loop.
func New(cfg *config.SiliconConfig, opts Options) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	sim := cfg.Simulation
	clk, err := clock.New(sim.Tau,
		clock.WithBudget(sim.Budget),
		clock.WithRunIndefinitely(sim.RunIndefinitely),
		clock.WithRefillIncrement(sim.RefillIncrement))
	if err != nil {
		return nil, err
	}

	g, err := network.NewGraph(sim.MaxSpikes)
	if err != nil {
		return nil, err
	}
	if err := network.Build(g, sim.Seed, cfg.Network); err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}

	s := &Simulator{
		config:   cfg,
		clock:    clk,
		graph:    g,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		logger:   logger,
		events:   opts.Events,
	}

	var sink pipeline.Sink
	if cfg.Learning.Enabled {
		s.loop, err = learning.NewLoop(g, cfg.Learning.Config, sim.Seed, logger, opts.Events)
		if err != nil {
			return nil, err
		}
		sink = s.loop.Queue()
	}

	s.pipeline, err = pipeline.NewEngine(clk, g, sink, cfg.PipelineConfig(), logger)
	if err != nil {
		return nil, err
	}

	if opts.Watch != nil {
		s.watcher, err = analytics.NewWatcher(*opts.Watch)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("simulator ready",
		"neurons", g.NumNeurons(), "synapses", g.NumSynapses(),
		"mode", cfg.Plasticity.Mode, "learning", cfg.Learning.Enabled)
	return s, nil
}

// TickReport is the outcome of one Tick.
type TickReport struct {
	pipeline.TickResult
	Outcome *learning.Outcome `json:"outcome,omitempty"`
}

// Tick runs one pipeline pass followed by the learning loop.
func (s *Simulator) Tick(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick(ctx)
}

func (s *Simulator) tick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	res, err := s.pipeline.Step(ctx)
	if err != nil {
		return TickReport{TickResult: res}, err
	}
	report := TickReport{TickResult: res}
	if !res.Advanced {
		return report, nil
	}

	s.stats.Ticks++
	s.stats.Spikes += len(res.Spikes)
	s.stats.Propagated += res.Propagated
	s.stats.Skipped += res.Skipped
	s.stats.Emitted += res.Emitted
	s.stats.Pruned += len(res.Pruned)

	if len(res.Pruned) > 0 {
		s.events.Log(logging.EventPrune, res.Time, map[string]any{"synapses": res.Pruned})
	}
	s.logger.Log(ctx, logging.LevelTrace, "tick", "time", res.Time, "spikes", len(res.Spikes))

	if s.loop != nil {
		if out := s.loop.Tick(res.Time); out != nil {
			s.stats.Rewards++
			s.lastOutcome = out
			report.Outcome = out
			s.metrics.ObserveReward(out.Reward, out.Explored)
		}
	}

	if s.watcher != nil {
		s.watcher.Sample(s.graph, res.Time, res.Spikes)
	}
	if s.recorder != nil {
		if err := s.recorder.Observe(ctx, s.graph, res, report.Outcome); err != nil {
			return report, err
		}
	}

	if s.metrics != nil {
		sample := metrics.TickSample{
			Time:       res.Time,
			Spikes:     len(res.Spikes),
			Propagated: res.Propagated,
			Skipped:    res.Skipped,
			Pruned:     len(res.Pruned),
			Synapses:   s.graph.NumSynapses(),
			Duration:   time.Since(start),
		}
		if s.loop != nil {
			sample.QueueLen = s.loop.Queue().Len()
		}
		s.metrics.ObserveTick(sample)
	}
	return report, nil
}

// RunSummary aggregates a Run call.
type RunSummary struct {
	Ticks   int     `json:"ticks"`
	Spikes  int     `json:"spikes"`
	Rewards int     `json:"rewards"`
	Pruned  int     `json:"pruned"`
	Time    float64 `json:"time"`

	// Paused is true when the clock budget ran out before all ticks ran.
	Paused bool `json:"paused"`

	// LastReward is the most recent reward applied during the call.
	LastReward *learning.Outcome `json:"last_reward,omitempty"`
}

// Run executes up to ticks ticks, stopping early when the clock pauses or
// ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, ticks int) (RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum RunSummary
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			sum.Time = s.clock.Time()
			return sum, err
		}
		rep, err := s.tick(ctx)
		if err != nil {
			sum.Time = s.clock.Time()
			return sum, err
		}
		if !rep.Advanced {
			sum.Paused = true
			break
		}
		sum.Ticks++
		sum.Spikes += len(rep.Spikes)
		sum.Pruned += len(rep.Pruned)
		if rep.Outcome != nil {
			sum.Rewards++
			sum.LastReward = rep.Outcome
		}
	}
	sum.Time = s.clock.Time()
	return sum, nil
}

// InjectCurrent adds delta to a neuron and returns its new potential.
func (s *Simulator) InjectCurrent(id models.NeuronID, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.graph.Neuron(id)
	if !ok {
		return 0, fmt.Errorf("inject %s: %w", id, network.ErrUnknownNeuron)
	}
	return entry.Model.InjectCurrent(delta), nil
}

// Potential returns a neuron's membrane potential.
func (s *Simulator) Potential(id models.NeuronID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.graph.Neuron(id)
	if !ok {
		return 0, fmt.Errorf("potential %s: %w", id, network.ErrUnknownNeuron)
	}
	return entry.Model.Potential(), nil
}

// Spikes returns the recorded fire times of a neuron, oldest first.
func (s *Simulator) Spikes(id models.NeuronID) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.graph.Neuron(id)
	if !ok {
		return nil, fmt.Errorf("spikes %s: %w", id, network.ErrUnknownNeuron)
	}
	return entry.Recorder.Spikes(), nil
}

// NeuronState is a read-only view of one neuron.
type NeuronState struct {
	ID         models.NeuronID `json:"id"`
	Layer      string          `json:"layer"`
	Kind       string          `json:"kind"`
	Potential  float64         `json:"potential"`
	Activation float64         `json:"activation"`
	SpikeCount int             `json:"spike_count"`
	LastSpike  *float64        `json:"last_spike,omitempty"`
}

// SynapseState is a read-only view of one synapse.
type SynapseState struct {
	ID     models.SynapseID   `json:"id"`
	Pre    models.NeuronID    `json:"pre"`
	Post   models.NeuronID    `json:"post"`
	Type   models.SynapseType `json:"type"`
	Kind   string             `json:"kind"`
	Weight float64            `json:"weight"`
}

// Snapshot is the externally visible state between ticks.
type Snapshot struct {
	Time            float64       `json:"time"`
	Remaining       float64       `json:"remaining"`
	RunIndefinitely bool          `json:"run_indefinitely"`
	Neurons         []NeuronState `json:"neurons"`
	SynapseCount    int           `json:"synapse_count"`
	Stats           Stats         `json:"stats"`

	// Learning fields are zero when the loop is disabled.
	Class         int               `json:"class"`
	NextReward    float64           `json:"next_reward"`
	QueueLen      int               `json:"queue_len"`
	QueueDropped  uint64            `json:"queue_dropped"`
	LastOutcome   *learning.Outcome `json:"last_outcome,omitempty"`
	RecordedRunID string            `json:"run_id,omitempty"`
}

// Snapshot captures the clock, every neuron and the counters.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Time:            s.clock.Time(),
		Remaining:       s.clock.Remaining(),
		RunIndefinitely: s.clock.RunIndefinitely(),
		SynapseCount:    s.graph.NumSynapses(),
		Stats:           s.stats,
		LastOutcome:     s.lastOutcome,
	}
	for _, id := range s.graph.NeuronIDs() {
		snap.Neurons = append(snap.Neurons, s.neuronState(id))
	}
	if s.loop != nil {
		snap.Class = s.loop.Class()
		snap.NextReward = s.loop.NextReward()
		snap.QueueLen = s.loop.Queue().Len()
		snap.QueueDropped = s.loop.Queue().Dropped()
	}
	if s.recorder != nil {
		snap.RecordedRunID = s.recorder.RunID()
	}
	return snap
}

// Neuron returns the state of one neuron.
func (s *Simulator) Neuron(id models.NeuronID) (NeuronState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.graph.Neuron(id); !ok {
		return NeuronState{}, fmt.Errorf("neuron %s: %w", id, network.ErrUnknownNeuron)
	}
	return s.neuronState(id), nil
}

func (s *Simulator) neuronState(id models.NeuronID) NeuronState {
	entry, _ := s.graph.Neuron(id)
	st := NeuronState{
		ID:         id,
		Layer:      entry.Layer,
		Kind:       string(entry.Model.Kind()),
		Potential:  entry.Model.Potential(),
		Activation: entry.Model.ActivationPercent(),
		SpikeCount: entry.Recorder.Len(),
	}
	if last, ok := entry.Recorder.Last(); ok {
		st.LastSpike = &last
	}
	return st
}

// Synapses lists synapses in ID order. A non-zero neuron restricts the
// list to synapses touching it.
func (s *Simulator) Synapses(neuron models.NeuronID) []SynapseState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.graph.SynapseIDs()
	if neuron != 0 {
		ids = append(append([]models.SynapseID(nil), s.graph.Outgoing(neuron)...), s.graph.Incoming(neuron)...)
		slices.Sort(ids)
		ids = slices.Compact(ids)
	}
	out := make([]SynapseState, 0, len(ids))
	for _, id := range ids {
		syn, ok := s.graph.Synapse(id)
		if !ok {
			continue
		}
		out = append(out, SynapseState{
			ID:     id,
			Pre:    syn.Presynaptic(),
			Post:   syn.Postsynaptic(),
			Type:   syn.Type(),
			Kind:   string(syn.Kind()),
			Weight: syn.Weight(),
		})
	}
	return out
}

// Membrane returns the watched potential trace of a neuron. It is empty
// unless the simulator was created with Options.Watch.
func (s *Simulator) Membrane(id models.NeuronID) []analytics.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Membrane(id)
}

// WeightTrace returns the watched weight trace of a synapse.
func (s *Simulator) WeightTrace(id models.SynapseID) []analytics.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Weight(id)
}

// SetWeight overwrites a synapse weight. STDP synapses clamp to bounds.
func (s *Simulator) SetWeight(id models.SynapseID, w float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	syn, ok := s.graph.Synapse(id)
	if !ok {
		return 0, fmt.Errorf("synapse %s: %w", id, ErrUnknownSynapse)
	}
	syn.SetWeight(w)
	return syn.Weight(), nil
}

// AddBudget extends the clock budget by d simulated seconds.
func (s *Simulator) AddBudget(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.AddBudget(d)
}

// Pause empties the budget and stops indefinite running.
func (s *Simulator) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Pause()
}

// Graph calls fn with the network under the read lock. fn must not retain
// the graph.
func (s *Simulator) Graph(fn func(g *network.Graph)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.graph)
}

// Checkpoint captures the learned synapse state at the current time.
func (s *Simulator) Checkpoint() *checkpoint.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return checkpoint.Capture(s.graph, s.clock.Time())
}

// Restore applies a checkpoint taken from a network built with the same
// configuration. Call it before the first tick.
func (s *Simulator) Restore(c *checkpoint.Checkpoint) (checkpoint.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := c.Apply(s.graph)
	if err != nil {
		return res, err
	}
	s.logger.Info("restored checkpoint", "from_time", c.Time, "restored", res.Restored, "removed", res.Removed)
	return res, nil
}

// Stats returns the lifetime counters.
func (s *Simulator) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Close flushes the run recorder. The store itself is owned by the caller.
func (s *Simulator) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Flush(ctx)
}
