package models

// Spike is a firing event produced by a neuron during a tick.
type Spike struct {
	Time   float64  `json:"time" yaml:"time"`
	Neuron NeuronID `json:"neuron" yaml:"neuron"`
}

// SpikeSide records which endpoint of an STDP synapse fired last.
type SpikeSide int

const (
	PreSpike SpikeSide = iota
	PostSpike
)

func (s SpikeSide) String() string {
	if s == PostSpike {
		return "post"
	}
	return "pre"
}

// DeferredStdpEvent is a weight change computed from spike timing that has
// not yet been modulated by reward.
type DeferredStdpEvent struct {
	Synapse     SynapseID `json:"synapse"`
	DeltaWeight float64   `json:"delta_weight"`
	Time        float64   `json:"time"`
}
