package synapses

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/silicon/internal/models"
)

func newTestSTDP(t *testing.T, weight float64) *STDP {
	t.Helper()
	s, err := NewSTDP(1, 2, models.Excitatory, weight, DefaultStdpParams())
	if err != nil {
		t.Fatalf("NewSTDP() error = %v", err)
	}
	return s
}

func TestSTDP_CausalPairing(t *testing.T) {
	s := newTestSTDP(t, 0.5)
	p := s.Params

	// Initial state is PreSpike with zero trace: nothing to pair with.
	if _, ok := s.RegisterPreSpike(); ok {
		t.Fatal("RegisterPreSpike() emitted a delta from a fresh synapse")
	}

	delta, ok := s.RegisterPostSpike()
	if !ok {
		t.Fatal("RegisterPostSpike() after pre spike emitted nothing")
	}
	if delta != p.APlus {
		t.Errorf("pre->post delta = %v, want a_plus %v", delta, p.APlus)
	}

	delta, ok = s.RegisterPreSpike()
	if !ok {
		t.Fatal("RegisterPreSpike() after post spike emitted nothing")
	}
	if delta != p.AMinus {
		t.Errorf("post->pre delta = %v, want a_minus %v", delta, p.AMinus)
	}
}

func TestSTDP_SameSideDoesNotPair(t *testing.T) {
	s := newTestSTDP(t, 0.5)
	s.RegisterPostSpike()
	if _, ok := s.RegisterPostSpike(); ok {
		t.Error("post->post emitted a delta")
	}
}

func TestSTDP_DecayedTraceDoesNotPair(t *testing.T) {
	s := newTestSTDP(t, 0.5)
	s.RegisterPreSpike()
	for i := 0; i < 2000; i++ {
		s.Update(0.05)
	}
	if math.Abs(s.State.Trace) > TraceEpsilon {
		t.Fatalf("trace = %v, expected decay below epsilon", s.State.Trace)
	}
	if _, ok := s.RegisterPostSpike(); ok {
		t.Error("RegisterPostSpike() paired with a decayed trace")
	}
}

func TestSTDP_UpdateRelaxesTowardZero(t *testing.T) {
	s := newTestSTDP(t, 0.5)
	s.RegisterPostSpike()
	prev := math.Abs(s.State.Trace)
	for i := 0; i < 50; i++ {
		s.Update(0.1)
		cur := math.Abs(s.State.Trace)
		if cur > prev {
			t.Fatalf("trace magnitude grew: %v -> %v", prev, cur)
		}
		prev = cur
	}
}

func TestSTDP_WeightStaysInBounds(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		scale float64
		want  float64
	}{
		{"overshoot max", 0.9, 5, 1.0},
		{"undershoot min", -0.9, 5, 0.0},
		{"within bounds", 0.1, 1, 0.6},
		{"nan collapses to min", math.NaN(), 1, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSTDP(t, 0.5)
			s.ApplyDelta(tt.delta, tt.scale)
			if math.Abs(s.Weight()-tt.want) > 1e-12 {
				t.Errorf("Weight() = %v, want %v", s.Weight(), tt.want)
			}
		})
	}
}

func TestNewSTDP_ClampsInitialWeight(t *testing.T) {
	s := newTestSTDP(t, 3)
	if s.Weight() != 1 {
		t.Errorf("Weight() = %v, want clamp to 1", s.Weight())
	}
}

func TestStdpParams_Validate(t *testing.T) {
	p := DefaultStdpParams()
	p.WMin, p.WMax = 2, 1
	if err := p.Validate(); !errors.Is(err, ErrInvalidWeightBounds) {
		t.Errorf("Validate() = %v, want ErrInvalidWeightBounds", err)
	}
	p = DefaultStdpParams()
	p.TauMinus = 0
	if err := p.Validate(); err == nil {
		t.Error("Validate() = nil for zero tau_minus")
	}
}

func TestSimple_UnclampedAndStatic(t *testing.T) {
	s, err := NewSimple(1, 2, models.Inhibitory, 0.5)
	if err != nil {
		t.Fatalf("NewSimple() error = %v", err)
	}
	s.Update(0.1)
	if s.Weight() != 0.5 {
		t.Errorf("Update changed weight to %v", s.Weight())
	}
	s.SetWeight(4)
	if s.Weight() != 4 {
		t.Errorf("SetWeight(4) stored %v", s.Weight())
	}
	if _, err := NewSimple(1, 2, "sideways", 1); err == nil {
		t.Error("NewSimple() error = nil for unknown type")
	}
}

func TestDecay(t *testing.T) {
	d := NewDecay(1.0, 0.05, 0)
	s := newTestSTDP(t, 0.5)

	if d.Due(0.5) {
		t.Fatal("Due(0.5) = true before first interval")
	}
	if !d.Due(1.0) {
		t.Fatal("Due(1.0) = false at first interval")
	}
	d.Apply(s)
	if math.Abs(s.Weight()-0.45) > 1e-12 {
		t.Errorf("Weight() = %v after decay, want 0.45", s.Weight())
	}
	if d.Due(1.5) {
		t.Error("Due(1.5) = true before next interval")
	}

	var disabled *Decay
	if disabled.Due(100) {
		t.Error("nil Decay reported due")
	}
}
