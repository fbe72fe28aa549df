package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/nvandessel/silicon/internal/clock"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/neurons"
	"github.com/nvandessel/silicon/internal/synapses"
)

type recordingSink struct {
	events []models.DeferredStdpEvent
}

func (r *recordingSink) Push(ev models.DeferredStdpEvent) { r.events = append(r.events, ev) }

// pair builds A -> B where A starts above threshold and B fires from a
// single 0.5 input.
type pair struct {
	graph   *network.Graph
	clock   *clock.Clock
	a, b    *neurons.LIF
	aID     models.NeuronID
	bID     models.NeuronID
	synID   models.SynapseID
	synapse synapses.Synapse
}

func newPair(t *testing.T, plastic bool) *pair {
	t.Helper()
	g, err := network.NewGraph(neurons.DefaultMaxSpikes)
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	clk, err := clock.New(0.025, clock.WithBudget(10))
	if err != nil {
		t.Fatalf("clock.New() error = %v", err)
	}

	pa := neurons.DefaultLIFParams()
	a, _ := neurons.NewLIF(pa)
	a.MembranePotential = -50

	pb := neurons.DefaultLIFParams()
	pb.ThresholdPotential = pb.RestingPotential + 0.3
	b, _ := neurons.NewLIF(pb)

	aID, _ := g.AddNeuron("l", a)
	bID, _ := g.AddNeuron("l", b)

	var s synapses.Synapse
	if plastic {
		s, err = synapses.NewSTDP(aID, bID, models.Excitatory, 0.5, synapses.DefaultStdpParams())
	} else {
		s, err = synapses.NewSimple(aID, bID, models.Excitatory, 0.5)
	}
	if err != nil {
		t.Fatalf("new synapse: %v", err)
	}
	sid, err := g.AddSynapse(s)
	if err != nil {
		t.Fatalf("AddSynapse() error = %v", err)
	}
	return &pair{graph: g, clock: clk, a: a, b: b, aID: aID, bID: bID, synID: sid, synapse: s}
}

func firedIDs(res TickResult) map[models.NeuronID]bool {
	out := make(map[models.NeuronID]bool)
	for _, s := range res.Spikes {
		out[s.Neuron] = true
	}
	return out
}

func TestStep_PropagatesOnNextTick(t *testing.T) {
	p := newPair(t, false)
	e, err := NewEngine(p.clock, p.graph, nil, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	res, err := e.Step(context.Background())
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	fired := firedIDs(res)
	if !fired[p.aID] {
		t.Fatal("A did not fire on the first tick")
	}
	if fired[p.bID] {
		t.Fatal("B fired in the same integration pass as A")
	}
	if res.Propagated != 1 {
		t.Errorf("Propagated = %d, want 1", res.Propagated)
	}
	if math.Abs(p.b.Potential()-(-69.5)) > 1e-9 {
		t.Errorf("B potential = %v after propagation, want -69.5", p.b.Potential())
	}

	res, _ = e.Step(context.Background())
	if !firedIDs(res)[p.bID] {
		t.Error("B did not fire on the tick after receiving input")
	}
	entry, _ := p.graph.Neuron(p.bID)
	if n := entry.Recorder.Len(); n != 1 {
		t.Errorf("B recorded %d spikes, want 1", n)
	}
}

func TestStep_PausedClockDoesNothing(t *testing.T) {
	p := newPair(t, false)
	p.clock.Pause()
	e, _ := NewEngine(p.clock, p.graph, nil, DefaultConfig(), nil)

	res, err := e.Step(context.Background())
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if res.Advanced || len(res.Spikes) != 0 {
		t.Errorf("Step() on paused clock = %+v", res)
	}
	if p.a.Potential() != -50 {
		t.Errorf("A integrated while paused: %v", p.a.Potential())
	}
}

func TestStep_RewardModeQueuesDeltas(t *testing.T) {
	p := newPair(t, true)
	sink := &recordingSink{}
	e, _ := NewEngine(p.clock, p.graph, sink, DefaultConfig(), nil)

	e.Step(context.Background())
	e.Step(context.Background())

	if len(sink.events) != 1 {
		t.Fatalf("sink got %d events, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Synapse != p.synID {
		t.Errorf("event synapse = %v, want %v", ev.Synapse, p.synID)
	}
	want := synapses.DefaultStdpParams().APlus * (1 - 0.025)
	if math.Abs(ev.DeltaWeight-want) > 1e-12 {
		t.Errorf("event delta = %v, want %v", ev.DeltaWeight, want)
	}
	if p.synapse.Weight() != 0.5 {
		t.Errorf("weight changed in reward mode: %v", p.synapse.Weight())
	}
}

func TestStep_DirectModeAppliesImmediately(t *testing.T) {
	p := newPair(t, true)
	cfg := DefaultConfig()
	cfg.Mode = ModeDirect
	e, _ := NewEngine(p.clock, p.graph, nil, cfg, nil)

	e.Step(context.Background())
	e.Step(context.Background())

	want := 0.5 + synapses.DefaultStdpParams().APlus*(1-0.025)
	if math.Abs(p.synapse.Weight()-want) > 1e-12 {
		t.Errorf("weight = %v, want %v", p.synapse.Weight(), want)
	}
}

func TestStep_SkipsMissingPostsynapticNeuron(t *testing.T) {
	p := newPair(t, false)
	p.graph.RemoveNeuron(p.bID)
	e, _ := NewEngine(p.clock, p.graph, nil, DefaultConfig(), nil)

	res, err := e.Step(context.Background())
	if err != nil {
		t.Fatalf("Step() error = %v", err)
	}
	if res.Skipped != 1 || res.Propagated != 0 {
		t.Errorf("Skipped=%d Propagated=%d, want 1 and 0", res.Skipped, res.Propagated)
	}
}

func TestStep_ParallelMatchesSequential(t *testing.T) {
	run := func(workers int) []float64 {
		g, _ := network.NewGraph(neurons.DefaultMaxSpikes)
		if err := network.Build(g, 11, network.DefaultTopology()); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		clk, _ := clock.New(0.01, clock.WithBudget(2))
		cfg := DefaultConfig()
		cfg.Workers = workers
		e, err := NewEngine(clk, g, &recordingSink{}, cfg, nil)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		input, _ := g.Layer("input")
		for tick := 0; tick < 150; tick++ {
			if tick%10 == 0 {
				for _, id := range input {
					n, _ := g.Neuron(id)
					n.Model.InjectCurrent(0.7)
				}
			}
			if _, err := e.Step(context.Background()); err != nil {
				t.Fatalf("Step() error = %v", err)
			}
		}
		var out []float64
		for _, id := range g.NeuronIDs() {
			n, _ := g.Neuron(id)
			out = append(out, n.Model.Potential())
		}
		return out
	}

	seq, par := run(1), run(4)
	if len(seq) != len(par) {
		t.Fatalf("neuron counts differ: %d vs %d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i] != par[i] {
			t.Fatalf("neuron %d potential differs: %v vs %v", i, seq[i], par[i])
		}
	}
}

func TestStep_CancelledContext(t *testing.T) {
	g, _ := network.NewGraph(neurons.DefaultMaxSpikes)
	network.Build(g, 1, network.DefaultTopology())
	clk, _ := clock.New(0.01, clock.WithBudget(1))
	cfg := DefaultConfig()
	cfg.Workers = 2
	e, _ := NewEngine(clk, g, nil, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Step(ctx); err == nil {
		t.Error("Step() error = nil with cancelled context")
	}
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	p := newPair(t, false)
	cfg := DefaultConfig()
	cfg.Mode = "hebbian"
	if _, err := NewEngine(p.clock, p.graph, nil, cfg, nil); err == nil {
		t.Error("NewEngine() accepted unknown mode")
	}
}
