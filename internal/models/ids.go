// Package models holds the value types shared by the simulator packages.
package models

import "fmt"

// NeuronID identifies a neuron in a simulation graph. IDs are assigned
// monotonically starting at 1 and are never reused.
type NeuronID int64

// SynapseID identifies a synapse in a simulation graph.
type SynapseID int64

func (id NeuronID) String() string  { return fmt.Sprintf("n%d", int64(id)) }
func (id SynapseID) String() string { return fmt.Sprintf("s%d", int64(id)) }

// SynapseType is the sign of a synapse's effect on its postsynaptic neuron.
type SynapseType string

const (
	Excitatory SynapseType = "excitatory" // adds weight to the target potential
	Inhibitory SynapseType = "inhibitory" // subtracts weight from the target potential
)

// Valid reports whether t is a known synapse type.
func (t SynapseType) Valid() bool {
	return t == Excitatory || t == Inhibitory
}

// Sign returns +1 for excitatory and -1 for inhibitory synapses.
func (t SynapseType) Sign() float64 {
	if t == Inhibitory {
		return -1
	}
	return 1
}
