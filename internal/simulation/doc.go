// Package simulation provides a scenario test harness for validating the
// dynamics of whole networks.
//
// The harness drives the real engine.Simulator, tick pipeline, learning loop
// and SQLite run store with no mocks. Scenarios are Go values that describe
// a configuration, a tick count and optional per-tick stimulation; the
// Runner executes them and captures per-tick snapshots for property-based
// assertions.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestRewardLoop(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:   "reward-loop",
//	        Config: config.Default(),
//	        Ticks:  1100,
//	        Record: true,
//	    })
//	    simulation.AssertQueueDrainedAfterRewards(t, result)
//	    simulation.AssertWeightsBounded(t, result, 0, 1)
//	}
package simulation
