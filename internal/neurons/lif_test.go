package neurons

import (
	"math"
	"testing"
)

func newTestLIF(t *testing.T) *LIF {
	t.Helper()
	n, err := NewLIF(DefaultLIFParams())
	if err != nil {
		t.Fatalf("NewLIF() error = %v", err)
	}
	return n
}

func TestLIF_LeaksMonotonicallyTowardRest(t *testing.T) {
	tests := []struct {
		name  string
		start float64
	}{
		{"above rest", -60},
		{"below rest", -85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestLIF(t)
			n.MembranePotential = tt.start
			rest := n.Params.RestingPotential

			prevDist := math.Abs(tt.start - rest)
			for i := 0; i < 200; i++ {
				if n.Integrate(0.025) {
					t.Fatalf("neuron fired without input at step %d", i)
				}
				dist := math.Abs(n.Potential() - rest)
				if dist > prevDist {
					t.Fatalf("distance to rest grew at step %d: %v -> %v", i, prevDist, dist)
				}
				prevDist = dist
			}
		})
	}
}

func TestLIF_FiresOnceThenHoldsReset(t *testing.T) {
	p := LIFParams{
		ResetPotential:     -90,
		ThresholdPotential: -55,
		RestingPotential:   -70,
		Resistance:         1,
		RefractoryPeriod:   0.2,
	}
	n, err := NewLIF(p)
	if err != nil {
		t.Fatalf("NewLIF() error = %v", err)
	}

	fired := 0
	for i := 0; i < 5; i++ {
		n.InjectCurrent(20)
		if n.Integrate(0.025) {
			fired++
		}
		if i > 0 && n.Potential() != p.ResetPotential {
			t.Errorf("tick %d: potential = %v, want reset %v", i, n.Potential(), p.ResetPotential)
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}

	for n.Refractory() {
		if n.Potential() != p.ResetPotential {
			t.Fatalf("potential = %v during refractory, want %v", n.Potential(), p.ResetPotential)
		}
		if n.Integrate(0.025) {
			t.Fatal("fired during refractory period")
		}
	}

	n.Integrate(0.025)
	if n.Potential() <= p.ResetPotential {
		t.Errorf("potential = %v after refractory, want leak toward rest", n.Potential())
	}
}

func TestLIF_RefractoryLastsWholeTicks(t *testing.T) {
	tests := []struct {
		period float64
		tau    float64
		want   int
	}{
		{0.2, 0.025, 8},
		{0.2, 0.1, 2},
		{0.3, 0.1, 3},
		{0.25, 0.1, 3},
	}
	for _, tt := range tests {
		p := DefaultLIFParams()
		p.RefractoryPeriod = tt.period
		n, err := NewLIF(p)
		if err != nil {
			t.Fatalf("NewLIF() error = %v", err)
		}
		n.MembranePotential = -50
		if !n.Integrate(tt.tau) {
			t.Fatalf("period %v: neuron above threshold did not fire", tt.period)
		}

		ticks := 0
		for n.Refractory() && ticks < 100 {
			if n.Integrate(tt.tau) {
				t.Fatalf("period %v: fired during refractory period", tt.period)
			}
			ticks++
		}
		if ticks != tt.want {
			t.Errorf("period %v tau %v: refractory ticks = %d, want %d", tt.period, tt.tau, ticks, tt.want)
		}
		if n.RefractoryCounter != 0 {
			t.Errorf("period %v tau %v: counter = %v after refractory, want 0", tt.period, tt.tau, n.RefractoryCounter)
		}
	}
}

func TestLIF_InjectScalesByResistance(t *testing.T) {
	p := DefaultLIFParams()
	p.Resistance = 2
	n, _ := NewLIF(p)
	if got := n.InjectCurrent(1.5); got != -67 {
		t.Errorf("InjectCurrent(1.5) = %v, want -67", got)
	}

	p.Resistance = 0
	n, _ = NewLIF(p)
	if got := n.InjectCurrent(-1); got != -71 {
		t.Errorf("InjectCurrent(-1) with zero resistance = %v, want -71", got)
	}
}

func TestLIF_ActivationPercent(t *testing.T) {
	tests := []struct {
		v    float64
		want float64
	}{
		{-80, 0},
		{-70, 0},
		{-62.5, 0.5},
		{-55, 1},
		{-40, 1},
	}
	for _, tt := range tests {
		n := newTestLIF(t)
		n.MembranePotential = tt.v
		if got := n.ActivationPercent(); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ActivationPercent(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestLIFParams_Validate(t *testing.T) {
	p := DefaultLIFParams()
	p.ThresholdPotential = p.RestingPotential
	if err := p.Validate(); err == nil {
		t.Error("Validate() = nil for threshold == rest")
	}
	p = DefaultLIFParams()
	p.RefractoryPeriod = -1
	if err := p.Validate(); err == nil {
		t.Error("Validate() = nil for negative refractory period")
	}
}
