package simulation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/store"
)

// Runner executes scenarios against a real simulator, with an isolated
// store per test.
type Runner struct {
	t   *testing.T
	dir string
}

// NewRunner creates a runner with a temp directory and sandboxed HOME.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	return &Runner{t: t, dir: tmpDir}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	cfg := scenario.Config
	if cfg == nil {
		cfg = config.Default()
	}

	// Phase 1: Open the store and register the run.
	var (
		opts   engine.Options
		result SimulationResult
	)
	if scenario.Record {
		name := scenario.Name
		if name == "" {
			name = "scenario"
		}
		st, err := store.NewSQLiteStore(filepath.Join(r.dir, strings.ReplaceAll(name, "/", "_")+".db"))
		if err != nil {
			r.t.Fatalf("Run(%s): open store: %v", scenario.Name, err)
		}
		r.t.Cleanup(func() { st.Close() })

		rec, err := engine.NewRunRecorder(ctx, st, store.NewRun(cfg.Simulation.Tau, cfg.Simulation.Seed, ""), cfg.Store.WeightsEvery)
		if err != nil {
			r.t.Fatalf("Run(%s): create run: %v", scenario.Name, err)
		}
		opts.Recorder = rec
		result.Store = st
		result.RunID = rec.RunID()
	}

	// Phase 2: Build the simulator.
	sim, err := engine.New(cfg, opts)
	if err != nil {
		r.t.Fatalf("Run(%s): engine.New: %v", scenario.Name, err)
	}
	result.Sim = sim

	// Phase 3: Tick.
	for i := 0; i < scenario.Ticks; i++ {
		if scenario.BeforeTick != nil {
			scenario.BeforeTick(i, sim)
		}
		rep, err := sim.Tick(ctx)
		if err != nil {
			r.t.Fatalf("Run(%s): tick %d: %v", scenario.Name, i, err)
		}
		if !rep.Advanced {
			r.t.Logf("Run(%s): clock paused after %d ticks", scenario.Name, i)
			break
		}

		ts := TickSnapshot{
			Index:    i,
			Time:     rep.Time,
			Spikes:   rep.Spikes,
			Pruned:   rep.Pruned,
			Outcome:  rep.Outcome,
			QueueLen: sim.Snapshot().QueueLen,
		}
		if scenario.WeightsEvery > 0 && (i+1)%scenario.WeightsEvery == 0 {
			ts.Weights = weights(sim)
		}
		result.Ticks = append(result.Ticks, ts)
	}
	if n := len(result.Ticks); n > 0 && result.Ticks[n-1].Weights == nil {
		result.Ticks[n-1].Weights = weights(sim)
	}

	// Phase 4: Flush and capture final state.
	if err := sim.Close(ctx); err != nil {
		r.t.Fatalf("Run(%s): close: %v", scenario.Name, err)
	}
	result.Final = sim.Snapshot()
	return result
}

func weights(sim *engine.Simulator) map[models.SynapseID]float64 {
	syns := sim.Synapses(0)
	out := make(map[models.SynapseID]float64, len(syns))
	for _, s := range syns {
		out[s.ID] = s.Weight
	}
	return out
}

// FormatTickDebug returns a debug string for a tick snapshot.
func FormatTickDebug(ts TickSnapshot) string {
	s := fmt.Sprintf("Tick %d (t=%.3f): spikes=%d pruned=%d queue=%d\n", ts.Index, ts.Time, len(ts.Spikes), len(ts.Pruned), ts.QueueLen)
	for _, sp := range ts.Spikes {
		s += fmt.Sprintf("  spike %s\n", sp.Neuron)
	}
	if ts.Outcome != nil {
		s += fmt.Sprintf("  reward class=%d correct=%.0f wrong=%.0f reward=%.4f\n",
			ts.Outcome.Class, ts.Outcome.Correct, ts.Outcome.Wrong, ts.Outcome.Reward)
	}
	return s
}
