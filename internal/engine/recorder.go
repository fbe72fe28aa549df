package engine

import (
	"context"
	"fmt"

	"github.com/nvandessel/silicon/internal/learning"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/pipeline"
	"github.com/nvandessel/silicon/internal/store"
)

// spikeFlushSize is how many spikes are buffered before a write.
const spikeFlushSize = 512

// RunRecorder streams a simulation run into a store. Spikes are buffered
// and written in batches; rewards are written as they happen; weights are
// snapshotted every WeightsEvery ticks.
type RunRecorder struct {
	store        store.Store
	run          store.Run
	weightsEvery int

	ticks   int
	pending []models.Spike
}

// NewRunRecorder registers run in st and returns a recorder for it.
func NewRunRecorder(ctx context.Context, st store.Store, run store.Run, weightsEvery int) (*RunRecorder, error) {
	if err := st.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return &RunRecorder{store: st, run: run, weightsEvery: weightsEvery}, nil
}

// RunID returns the ID of the run being recorded.
func (r *RunRecorder) RunID() string { return r.run.ID }

// Observe records one completed tick.
func (r *RunRecorder) Observe(ctx context.Context, g *network.Graph, tick pipeline.TickResult, outcome *learning.Outcome) error {
	r.ticks++
	r.pending = append(r.pending, tick.Spikes...)
	if len(r.pending) >= spikeFlushSize {
		if err := r.flushSpikes(ctx); err != nil {
			return err
		}
	}

	if outcome != nil {
		if err := r.store.RecordReward(ctx, r.run.ID, store.RewardRecord{
			Time:      outcome.Time,
			Class:     outcome.Class,
			Correct:   outcome.Correct,
			Wrong:     outcome.Wrong,
			Reward:    outcome.Reward,
			Explored:  outcome.Explored,
			Applied:   outcome.Applied,
			Discarded: outcome.Discarded,
		}); err != nil {
			return fmt.Errorf("record reward: %w", err)
		}
	}

	if r.weightsEvery > 0 && r.ticks%r.weightsEvery == 0 {
		if err := r.store.RecordWeights(ctx, r.run.ID, weightSnapshot(g, tick.Time)); err != nil {
			return fmt.Errorf("record weights: %w", err)
		}
	}
	return nil
}

// Flush writes any buffered spikes.
func (r *RunRecorder) Flush(ctx context.Context) error {
	return r.flushSpikes(ctx)
}

func (r *RunRecorder) flushSpikes(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.store.RecordSpikes(ctx, r.run.ID, r.pending); err != nil {
		return fmt.Errorf("record spikes: %w", err)
	}
	r.pending = r.pending[:0]
	return nil
}

func weightSnapshot(g *network.Graph, now float64) []store.WeightSample {
	ids := g.SynapseIDs()
	samples := make([]store.WeightSample, 0, len(ids))
	for _, id := range ids {
		s, ok := g.Synapse(id)
		if !ok {
			continue
		}
		samples = append(samples, store.WeightSample{Time: now, Synapse: id, Weight: s.Weight()})
	}
	return samples
}
