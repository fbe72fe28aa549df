package neurons

import (
	"errors"
	"fmt"
)

// LIFParams are the fixed parameters of a leaky integrate-and-fire neuron.
type LIFParams struct {
	ResetPotential     float64 `json:"reset_potential" yaml:"reset_potential"`
	ThresholdPotential float64 `json:"threshold_potential" yaml:"threshold_potential"`
	RestingPotential   float64 `json:"resting_potential" yaml:"resting_potential"`

	// Resistance scales injected current. Zero is treated as 1.
	Resistance float64 `json:"resistance" yaml:"resistance"`

	// RefractoryPeriod is the simulated time the neuron stays silent
	// after firing.
	RefractoryPeriod float64 `json:"refractory_period" yaml:"refractory_period"`
}

// DefaultLIFParams returns the reference parameter set.
func DefaultLIFParams() LIFParams {
	return LIFParams{
		ResetPotential:     -90,
		ThresholdPotential: -55,
		RestingPotential:   -70,
		Resistance:         1,
		RefractoryPeriod:   0.2,
	}
}

// Validate checks that the parameters describe a neuron that can fire.
func (p LIFParams) Validate() error {
	if p.ThresholdPotential <= p.RestingPotential {
		return fmt.Errorf("lif: threshold %v must be above resting %v", p.ThresholdPotential, p.RestingPotential)
	}
	if p.RefractoryPeriod < 0 {
		return errors.New("lif: refractory_period must be >= 0")
	}
	if p.Resistance < 0 {
		return errors.New("lif: resistance must be >= 0")
	}
	return nil
}

// zeroTolerance, scaled by tau, absorbs the residue left when a countdown
// of fixed steps reaches zero.
const zeroTolerance = 1e-9

// LIF is a leaky integrate-and-fire neuron.
type LIF struct {
	Params            LIFParams
	MembranePotential float64
	RefractoryCounter float64
}

// NewLIF creates a LIF neuron at its resting potential.
func NewLIF(p LIFParams) (*LIF, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &LIF{Params: p, MembranePotential: p.RestingPotential}, nil
}

// Integrate leaks the membrane toward rest. While refractory the counter
// counts down instead and the neuron cannot fire.
func (n *LIF) Integrate(tau float64) bool {
	if n.RefractoryCounter > 0 {
		n.RefractoryCounter -= tau
		if n.RefractoryCounter <= tau*zeroTolerance {
			n.RefractoryCounter = 0
		}
		return false
	}

	n.MembranePotential += (n.Params.RestingPotential - n.MembranePotential) * tau
	if n.MembranePotential > n.Params.ThresholdPotential {
		n.MembranePotential = n.Params.ResetPotential
		n.RefractoryCounter = n.Params.RefractoryPeriod
		return true
	}
	return false
}

func (n *LIF) Potential() float64 { return n.MembranePotential }

// InjectCurrent adds delta scaled by resistance. Input arriving during the
// refractory period is dropped and the membrane stays at reset.
func (n *LIF) InjectCurrent(delta float64) float64 {
	if n.RefractoryCounter > 0 {
		return n.MembranePotential
	}
	r := n.Params.Resistance
	if r == 0 {
		r = 1
	}
	n.MembranePotential += delta * r
	return n.MembranePotential
}

// ActivationPercent is 0 at or below rest and 1 at threshold.
func (n *LIF) ActivationPercent() float64 {
	span := n.Params.ThresholdPotential - n.Params.RestingPotential
	return clamp01((n.MembranePotential - n.Params.RestingPotential) / span)
}

// Refractory reports whether the neuron is in its refractory period.
func (n *LIF) Refractory() bool { return n.RefractoryCounter > 0 }

func (n *LIF) Kind() Kind { return KindLIF }
