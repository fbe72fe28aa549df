package simulation

import (
	"testing"

	"github.com/nvandessel/silicon/internal/config"
)

// TestRewardLoopEndToEnd runs the default two-class network for two
// presentation windows with recording enabled.
func TestRewardLoopEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.Store.WeightsEvery = 100

	r := NewRunner(t)
	result := r.Run(Scenario{
		Name:         "reward-loop",
		Config:       cfg,
		Ticks:        1100,
		Record:       true,
		WeightsEvery: 100,
	})

	if len(result.Ticks) != 1100 {
		t.Fatalf("ran %d ticks, want 1100", len(result.Ticks))
	}
	AssertRewardCount(t, result, 2)
	AssertRewardsInRange(t, result, -2, 2)
	AssertQueueDrainedAfterRewards(t, result)
	AssertWeightsBounded(t, result, 0, 1)
	AssertRecordedMatches(t, result)

	outcomes := result.Outcomes()
	if outcomes[0].Class != 0 || outcomes[1].Class != 1 {
		t.Errorf("reward classes = %d, %d; want 0 then 1", outcomes[0].Class, outcomes[1].Class)
	}
	if result.Final.Class != 0 {
		t.Errorf("presenting class %d after two windows, want 0", result.Final.Class)
	}
}

func TestSameSeedSameSpikes(t *testing.T) {
	run := func(workers int) SimulationResult {
		cfg := config.Default()
		cfg.Simulation.Seed = 42
		cfg.Simulation.Workers = workers
		return NewRunner(t).Run(Scenario{Name: "seeded", Config: cfg, Ticks: 600})
	}

	sequential := run(1)
	if len(sequential.SpikeTrain()) == 0 {
		t.Fatal("no spikes in 600 ticks of input presentation")
	}
	AssertSameSpikeTrain(t, sequential, run(1))
	AssertSameSpikeTrain(t, sequential, run(4))
}
