package network

import (
	"errors"
	"fmt"

	"github.com/nvandessel/silicon/internal/neurons"
	"github.com/nvandessel/silicon/internal/synapses"
)

// LayerSpec declares one layer of a Topology.
type LayerSpec struct {
	Name   string       `json:"name" yaml:"name"`
	Size   int          `json:"size" yaml:"size"`
	WTA    bool         `json:"wta,omitempty" yaml:"wta,omitempty"`
	Neuron neurons.Spec `json:"neuron" yaml:"neuron"`

	// WTAWeights applies to WTA layers only.
	WTAWeights WeightRange `json:"wta_weights,omitempty" yaml:"wta_weights,omitempty"`
}

// ConnectionSpec declares a ConnectLayers call.
type ConnectionSpec struct {
	From            string      `json:"from" yaml:"from"`
	To              string      `json:"to" yaml:"to"`
	Chance          float64     `json:"chance" yaml:"chance"`
	ExcitatoryRatio float64     `json:"excitatory_ratio" yaml:"excitatory_ratio"`
	Weights         WeightRange `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Topology is a declarative network description.
type Topology struct {
	Layers      []LayerSpec      `json:"layers" yaml:"layers"`
	Connections []ConnectionSpec `json:"connections" yaml:"connections"`
	Synapse     synapses.Spec    `json:"synapse" yaml:"synapse"`
}

// DefaultTopology is three 9-neuron layers feeding a 2-neuron WTA output,
// with sparse feedback connections.
func DefaultTopology() Topology {
	neuron := neurons.DefaultSpec()
	return Topology{
		Layers: []LayerSpec{
			{Name: "input", Size: 9, Neuron: neuron},
			{Name: "hidden", Size: 9, Neuron: neuron},
			{Name: "association", Size: 9, Neuron: neuron},
			{Name: "output", Size: 2, WTA: true, Neuron: neuron, WTAWeights: DefaultWTAWeightRange},
		},
		Connections: []ConnectionSpec{
			{From: "input", To: "hidden", Chance: 0.8, ExcitatoryRatio: 0.8},
			{From: "hidden", To: "association", Chance: 0.8, ExcitatoryRatio: 0.8},
			{From: "association", To: "output", Chance: 1.0, ExcitatoryRatio: 0.8},
			{From: "hidden", To: "input", Chance: 0.2, ExcitatoryRatio: 0.8},
			{From: "association", To: "hidden", Chance: 0.2, ExcitatoryRatio: 0.8},
			{From: "output", To: "association", Chance: 0.8, ExcitatoryRatio: 0.8},
		},
		Synapse: synapses.DefaultSpec(),
	}
}

// Validate checks layer names, sizes, model parameters and connection
// references without building anything.
func (t Topology) Validate() error {
	if len(t.Layers) == 0 {
		return errors.New("topology: no layers")
	}
	names := make(map[string]bool, len(t.Layers))
	for _, l := range t.Layers {
		if l.Name == "" {
			return errors.New("topology: layer without name")
		}
		if names[l.Name] {
			return fmt.Errorf("topology: duplicate layer %q", l.Name)
		}
		if l.Size <= 0 {
			return fmt.Errorf("topology: layer %q size must be positive", l.Name)
		}
		if err := l.neuronSpec().Validate(); err != nil {
			return fmt.Errorf("topology: layer %q: %w", l.Name, err)
		}
		names[l.Name] = true
	}
	for _, c := range t.Connections {
		if !names[c.From] || !names[c.To] {
			return fmt.Errorf("topology: connection %s->%s: %w", c.From, c.To, ErrUnknownLayer)
		}
	}
	return t.synapseSpec().Validate()
}

// neuronSpec falls back to the default model when a layer omits one.
func (l LayerSpec) neuronSpec() neurons.Spec {
	if l.Neuron == (neurons.Spec{}) {
		return neurons.DefaultSpec()
	}
	return l.Neuron
}

func (t Topology) synapseSpec() synapses.Spec {
	if t.Synapse == (synapses.Spec{}) {
		return synapses.DefaultSpec()
	}
	return t.Synapse
}

// Build creates every layer and connection of t on g.
func Build(g *Graph, seed uint64, t Topology) error {
	if err := t.Validate(); err != nil {
		return err
	}
	b := NewBuilder(g, seed)
	for _, l := range t.Layers {
		var err error
		spec := l.neuronSpec()
		if l.WTA {
			_, err = b.AddWTALayer(l.Name, l.Size, spec.New, l.WTAWeights)
		} else {
			_, err = b.AddLayer(l.Name, l.Size, spec.New)
		}
		if err != nil {
			return err
		}
	}
	for _, c := range t.Connections {
		_, err := b.ConnectLayers(c.From, c.To, ConnectOptions{
			Chance:          c.Chance,
			ExcitatoryRatio: c.ExcitatoryRatio,
			Weights:         c.Weights,
			Synapse:         t.synapseSpec(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
