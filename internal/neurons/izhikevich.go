package neurons

import "errors"

// Izhikevich spike peak in mV.
const izhikevichPeak = 30.0

// Bounds used to normalize Izhikevich potentials for display.
const (
	izhikevichDisplayLow  = -65.0
	izhikevichDisplaySpan = 30.0
)

// IzhikevichParams holds the four model constants plus the factor applied to
// synaptic input.
type IzhikevichParams struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
	D float64 `json:"d" yaml:"d"`

	SynapseWeightMultiplier float64 `json:"synapse_weight_multiplier" yaml:"synapse_weight_multiplier"`

	InitialV float64 `json:"initial_v" yaml:"initial_v"`
	InitialU float64 `json:"initial_u" yaml:"initial_u"`
}

// DefaultIzhikevichParams returns the reference parameter set.
func DefaultIzhikevichParams() IzhikevichParams {
	return IzhikevichParams{
		A:                       0.02,
		B:                       0.2,
		C:                       -100,
		D:                       8,
		SynapseWeightMultiplier: 80,
		InitialV:                -70,
		InitialU:                -14,
	}
}

// Validate rejects parameter sets that cannot be integrated.
func (p IzhikevichParams) Validate() error {
	if p.C >= izhikevichPeak {
		return errors.New("izhikevich: reset c must be below the 30mV peak")
	}
	if p.A < 0 {
		return errors.New("izhikevich: a must be >= 0")
	}
	return nil
}

// Izhikevich is a two-variable spiking neuron.
type Izhikevich struct {
	Params IzhikevichParams
	V      float64
	U      float64
}

// NewIzhikevich creates a neuron at the parameter set's initial state.
func NewIzhikevich(p IzhikevichParams) (*Izhikevich, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Izhikevich{Params: p, V: p.InitialV, U: p.InitialU}, nil
}

// Integrate performs one explicit Euler step. Both derivatives are taken
// from the state at the start of the step.
func (n *Izhikevich) Integrate(tau float64) bool {
	v, u := n.V, n.U
	n.V = v + tau*(0.04*v*v+5*v+140-u)
	n.U = u + tau*n.Params.A*(n.Params.B*v-u)

	if n.V >= izhikevichPeak {
		n.V = n.Params.C
		n.U += n.Params.D
		return true
	}
	return false
}

func (n *Izhikevich) Potential() float64 { return n.V }

func (n *Izhikevich) InjectCurrent(delta float64) float64 {
	n.V += delta * n.Params.SynapseWeightMultiplier
	return n.V
}

func (n *Izhikevich) ActivationPercent() float64 {
	return clamp01((n.V - izhikevichDisplayLow) / izhikevichDisplaySpan)
}

func (n *Izhikevich) Kind() Kind { return KindIzhikevich }
