package synapses

import (
	"fmt"

	"github.com/nvandessel/silicon/internal/models"
)

// Spec selects a synapse model for network construction.
type Spec struct {
	Kind Kind       `json:"kind" yaml:"kind"`
	STDP StdpParams `json:"stdp" yaml:"stdp"`
}

// DefaultSpec returns an STDP spec with reference parameters.
func DefaultSpec() Spec {
	return Spec{Kind: KindSTDP, STDP: DefaultStdpParams()}
}

// New creates a synapse of the selected kind.
func (s Spec) New(pre, post models.NeuronID, typ models.SynapseType, weight float64) (Synapse, error) {
	switch s.Kind {
	case KindSimple:
		return NewSimple(pre, post, typ, weight)
	case KindSTDP, "":
		return NewSTDP(pre, post, typ, weight, s.STDP)
	default:
		return nil, fmt.Errorf("unknown synapse kind %q", s.Kind)
	}
}

// Validate checks the parameters of the selected kind.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindSimple:
		return nil
	case KindSTDP, "":
		return s.STDP.Validate()
	default:
		return fmt.Errorf("unknown synapse kind %q", s.Kind)
	}
}
