package neurons

import "fmt"

// Spec describes a neuron model and its parameters, as read from config.
type Spec struct {
	Kind       Kind             `json:"kind" yaml:"kind"`
	LIF        LIFParams        `json:"lif" yaml:"lif"`
	Izhikevich IzhikevichParams `json:"izhikevich" yaml:"izhikevich"`
}

// DefaultSpec returns an Izhikevich spec with reference parameters, with
// LIF defaults filled in for switching kinds.
func DefaultSpec() Spec {
	return Spec{
		Kind:       KindIzhikevich,
		LIF:        DefaultLIFParams(),
		Izhikevich: DefaultIzhikevichParams(),
	}
}

// New builds a neuron from the spec.
func (s Spec) New() (Neuron, error) {
	switch s.Kind {
	case KindLIF:
		return NewLIF(s.LIF)
	case KindIzhikevich, "":
		return NewIzhikevich(s.Izhikevich)
	default:
		return nil, fmt.Errorf("unknown neuron kind %q", s.Kind)
	}
}

// Validate checks the parameters for the selected kind only.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindLIF:
		return s.LIF.Validate()
	case KindIzhikevich, "":
		return s.Izhikevich.Validate()
	default:
		return fmt.Errorf("unknown neuron kind %q", s.Kind)
	}
}
