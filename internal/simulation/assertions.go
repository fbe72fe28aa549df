package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/synapses"
)

// AssertWeightsBounded asserts that every STDP synapse weight captured in
// any snapshot lies within [lo, hi].
func AssertWeightsBounded(t *testing.T, result SimulationResult, lo, hi float64) {
	t.Helper()
	plastic := make(map[models.SynapseID]bool)
	for _, s := range result.Sim.Synapses(0) {
		plastic[s.ID] = s.Kind == string(synapses.KindSTDP)
	}
	for _, ts := range result.Ticks {
		for id, w := range ts.Weights {
			if known, ok := plastic[id]; ok && !known {
				continue
			}
			if w < lo || w > hi {
				t.Errorf("AssertWeightsBounded: tick %d: synapse %s weight %.6f not in [%.4f, %.4f]", ts.Index, id, w, lo, hi)
			}
		}
	}
}

// AssertQueueDrainedAfterRewards asserts that the deferred queue is empty
// at the end of every tick that applied a reward.
func AssertQueueDrainedAfterRewards(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, ts := range result.Ticks {
		if ts.Outcome != nil && ts.QueueLen != 0 {
			t.Errorf("AssertQueueDrainedAfterRewards: tick %d: %d events left after reward", ts.Index, ts.QueueLen)
		}
	}
}

// AssertRewardCount asserts how many rewards were applied.
func AssertRewardCount(t *testing.T, result SimulationResult, want int) {
	t.Helper()
	if got := len(result.Outcomes()); got != want {
		t.Errorf("AssertRewardCount: %d rewards applied, want %d", got, want)
	}
}

// AssertRewardsInRange asserts every applied reward lies in [lo, hi].
func AssertRewardsInRange(t *testing.T, result SimulationResult, lo, hi float64) {
	t.Helper()
	for _, o := range result.Outcomes() {
		if o.Reward < lo || o.Reward > hi {
			t.Errorf("AssertRewardsInRange: reward %.4f at t=%.3f not in [%.2f, %.2f]", o.Reward, o.Time, lo, hi)
		}
	}
}

// AssertSpikeCount asserts that neuron fired between min and max times.
func AssertSpikeCount(t *testing.T, result SimulationResult, neuron models.NeuronID, min, max int) {
	t.Helper()
	n := 0
	for _, sp := range result.SpikeTrain() {
		if sp.Neuron == neuron {
			n++
		}
	}
	if n < min || n > max {
		t.Errorf("AssertSpikeCount: %s fired %d times, want [%d, %d]", neuron, n, min, max)
	}
}

// AssertSameSpikeTrain asserts two runs produced identical spikes.
func AssertSameSpikeTrain(t *testing.T, a, b SimulationResult) {
	t.Helper()
	sa, sb := a.SpikeTrain(), b.SpikeTrain()
	if len(sa) != len(sb) {
		t.Fatalf("AssertSameSpikeTrain: %d spikes vs %d", len(sa), len(sb))
	}
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("AssertSameSpikeTrain: spike %d differs: %+v vs %+v", i, sa[i], sb[i])
		}
	}
}

// AssertNoSynapseBelow asserts that no synapse surviving a tick has weight
// below threshold, i.e. pruning kept up.
func AssertNoSynapseBelow(t *testing.T, result SimulationResult, threshold float64) {
	t.Helper()
	for _, ts := range result.Ticks {
		for id, w := range ts.Weights {
			if w < threshold {
				t.Errorf("AssertNoSynapseBelow: tick %d: synapse %s survived with weight %.6f < %.4f", ts.Index, id, w, threshold)
			}
		}
	}
}

// AssertRecordedMatches asserts that the store holds exactly the spikes
// and rewards the run produced.
func AssertRecordedMatches(t *testing.T, result SimulationResult) {
	t.Helper()
	if result.Store == nil {
		t.Fatal("AssertRecordedMatches: scenario did not record")
	}
	ctx := context.Background()

	spikes, err := result.Store.Spikes(ctx, result.RunID)
	if err != nil {
		t.Fatalf("AssertRecordedMatches: Spikes: %v", err)
	}
	train := result.SpikeTrain()
	if len(spikes) != len(train) {
		t.Errorf("AssertRecordedMatches: store has %d spikes, run produced %d", len(spikes), len(train))
	} else {
		for i := range train {
			if spikes[i] != train[i] {
				t.Errorf("AssertRecordedMatches: spike %d: stored %+v, produced %+v", i, spikes[i], train[i])
				break
			}
		}
	}

	rewards, err := result.Store.Rewards(ctx, result.RunID)
	if err != nil {
		t.Fatalf("AssertRecordedMatches: Rewards: %v", err)
	}
	if want := len(result.Outcomes()); len(rewards) != want {
		t.Errorf("AssertRecordedMatches: store has %d rewards, run applied %d", len(rewards), want)
	}
}
