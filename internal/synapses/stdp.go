package synapses

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/silicon/internal/models"
)

// TraceEpsilon is the magnitude below which an eligibility trace is treated
// as fully decayed.
const TraceEpsilon = 1e-6

// ErrInvalidWeightBounds is returned when w_min exceeds w_max.
var ErrInvalidWeightBounds = errors.New("w_min must not exceed w_max")

// StdpParams configures the plasticity rule.
type StdpParams struct {
	// APlus is loaded into the trace on a presynaptic spike.
	APlus float64 `json:"a_plus" yaml:"a_plus"`
	// AMinus is loaded into the trace on a postsynaptic spike.
	AMinus float64 `json:"a_minus" yaml:"a_minus"`

	TauPlus  float64 `json:"tau_plus" yaml:"tau_plus"`
	TauMinus float64 `json:"tau_minus" yaml:"tau_minus"`

	WMax float64 `json:"w_max" yaml:"w_max"`
	WMin float64 `json:"w_min" yaml:"w_min"`
}

// DefaultStdpParams returns the reference parameter set.
func DefaultStdpParams() StdpParams {
	return StdpParams{
		APlus:    0.01,
		AMinus:   -0.01,
		TauPlus:  0.02,
		TauMinus: 0.02,
		WMax:     1.0,
		WMin:     0.0,
	}
}

// Validate checks bounds and time constants.
func (p StdpParams) Validate() error {
	if p.WMin > p.WMax {
		return fmt.Errorf("stdp: %w (w_min=%v, w_max=%v)", ErrInvalidWeightBounds, p.WMin, p.WMax)
	}
	if !(p.TauPlus > 0) || !(p.TauMinus > 0) {
		return errors.New("stdp: tau_plus and tau_minus must be positive")
	}
	return nil
}

// StdpState is the eligibility trace and the side that spiked last.
type StdpState struct {
	Trace    float64          `json:"trace"`
	LastSide models.SpikeSide `json:"last_side"`
}

// STDP is a plastic synapse driven by pre/post spike timing.
type STDP struct {
	Params StdpParams
	State  StdpState

	weight float64
	typ    models.SynapseType
	pre    models.NeuronID
	post   models.NeuronID
}

// NewSTDP creates a plastic synapse with its weight clamped into bounds.
func NewSTDP(pre, post models.NeuronID, typ models.SynapseType, weight float64, p StdpParams) (*STDP, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("stdp synapse: unknown type %q", typ)
	}
	s := &STDP{
		Params: p,
		State:  StdpState{LastSide: models.PreSpike},
		typ:    typ,
		pre:    pre,
		post:   post,
	}
	s.SetWeight(weight)
	return s, nil
}

func (s *STDP) Weight() float64 { return s.weight }
func (s *STDP) Presynaptic() models.NeuronID { return s.pre }
func (s *STDP) Postsynaptic() models.NeuronID { return s.post }
func (s *STDP) Type() models.SynapseType { return s.typ }
func (s *STDP) Kind() Kind { return KindSTDP }

// SetWeight clamps w into [WMin, WMax].
func (s *STDP) SetWeight(w float64) {
	s.weight = clampWeight(w, s.Params.WMin, s.Params.WMax)
}

// Update relaxes the trace toward zero.
func (s *STDP) Update(tau float64) {
	s.State.Trace += (0 - s.State.Trace) * tau
}

// RegisterPreSpike records a presynaptic spike. If the postsynaptic side
// fired last and its trace has not decayed away, the trace is returned as a
// weight delta.
func (s *STDP) RegisterPreSpike() (float64, bool) {
	delta, ok := s.pairing(models.PostSpike)
	s.State.LastSide = models.PreSpike
	s.State.Trace = s.Params.APlus
	return delta, ok
}

// RegisterPostSpike is the mirror of RegisterPreSpike.
func (s *STDP) RegisterPostSpike() (float64, bool) {
	delta, ok := s.pairing(models.PreSpike)
	s.State.LastSide = models.PostSpike
	s.State.Trace = s.Params.AMinus
	return delta, ok
}

func (s *STDP) pairing(opposite models.SpikeSide) (float64, bool) {
	if s.State.LastSide != opposite || math.Abs(s.State.Trace) <= TraceEpsilon {
		return 0, false
	}
	return s.State.Trace, true
}

// ApplyDelta adds delta*scale to the weight and clamps.
func (s *STDP) ApplyDelta(delta, scale float64) {
	s.SetWeight(s.weight + delta*scale)
}

// clampWeight restricts w to [lo, hi]. NaN and Inf collapse to lo.
func clampWeight(w, lo, hi float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return lo
	}
	if w < lo {
		return lo
	}
	if w > hi {
		return hi
	}
	return w
}
