// Package synapses implements the static and spike-timing-dependent synapse
// models. Synapses reference their endpoints by neuron ID only.
package synapses

import (
	"fmt"

	"github.com/nvandessel/silicon/internal/models"
)

// Kind names a synapse model.
type Kind string

const (
	KindSimple Kind = "simple"
	KindSTDP   Kind = "stdp"
)

// Synapse is the contract shared by all synapse models.
type Synapse interface {
	Weight() float64

	// SetWeight stores w. Models with weight bounds clamp; others store
	// w as given.
	SetWeight(w float64)

	Presynaptic() models.NeuronID
	Postsynaptic() models.NeuronID
	Type() models.SynapseType

	// Update decays per-tick internal state. No-op for static synapses.
	Update(tau float64)

	Kind() Kind
}

// Simple is a synapse with a fixed weight.
type Simple struct {
	weight float64
	typ    models.SynapseType
	pre    models.NeuronID
	post   models.NeuronID
}

// NewSimple creates a static synapse.
func NewSimple(pre, post models.NeuronID, typ models.SynapseType, weight float64) (*Simple, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("simple synapse: unknown type %q", typ)
	}
	return &Simple{weight: weight, typ: typ, pre: pre, post: post}, nil
}

func (s *Simple) Weight() float64 { return s.weight }
func (s *Simple) SetWeight(w float64) { s.weight = w }
func (s *Simple) Presynaptic() models.NeuronID { return s.pre }
func (s *Simple) Postsynaptic() models.NeuronID { return s.post }
func (s *Simple) Type() models.SynapseType { return s.typ }
func (s *Simple) Update(float64) {}
func (s *Simple) Kind() Kind { return KindSimple }
