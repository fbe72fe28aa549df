// Package network holds the simulation graph: an arena of neurons and
// synapses keyed by stable integer IDs, plus a layered builder.
package network

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/neurons"
	"github.com/nvandessel/silicon/internal/synapses"
)

var (
	// ErrUnknownNeuron is returned when an ID does not name a live neuron.
	ErrUnknownNeuron = errors.New("unknown neuron")
	// ErrUnknownLayer is returned when a layer name is not registered.
	ErrUnknownLayer = errors.New("unknown layer")
)

// NeuronEntry is a neuron together with its recorder and layer membership.
type NeuronEntry struct {
	ID       models.NeuronID
	Layer    string
	Model    neurons.Neuron
	Recorder *neurons.SpikeRecorder
}

// Graph is the arena of neurons and synapses. IDs are assigned from 1 and
// never reused, and all iteration is in ascending ID order.
//
// Graph is not safe for concurrent use.
type Graph struct {
	maxSpikes int

	neurons     map[models.NeuronID]*NeuronEntry
	neuronOrder []models.NeuronID
	nextNeuron  models.NeuronID

	synapses     map[models.SynapseID]synapses.Synapse
	synapseOrder []models.SynapseID
	nextSynapse  models.SynapseID

	outgoing map[models.NeuronID][]models.SynapseID
	incoming map[models.NeuronID][]models.SynapseID

	layers     map[string][]models.NeuronID
	layerOrder []string
}

// NewGraph creates an empty graph whose neurons record up to maxSpikes
// spike times each.
func NewGraph(maxSpikes int) (*Graph, error) {
	if maxSpikes <= 0 {
		return nil, fmt.Errorf("new graph: %w", neurons.ErrInvalidCapacity)
	}
	return &Graph{
		maxSpikes:   maxSpikes,
		neurons:     make(map[models.NeuronID]*NeuronEntry),
		synapses:    make(map[models.SynapseID]synapses.Synapse),
		outgoing:    make(map[models.NeuronID][]models.SynapseID),
		incoming:    make(map[models.NeuronID][]models.SynapseID),
		layers:      make(map[string][]models.NeuronID),
		nextNeuron:  1,
		nextSynapse: 1,
	}, nil
}

// AddNeuron inserts n into layer (created on first use) and returns its ID.
func (g *Graph) AddNeuron(layer string, n neurons.Neuron) (models.NeuronID, error) {
	if n == nil {
		return 0, errors.New("add neuron: nil model")
	}
	rec, err := neurons.NewSpikeRecorder(g.maxSpikes)
	if err != nil {
		return 0, fmt.Errorf("add neuron: %w", err)
	}

	id := g.nextNeuron
	g.nextNeuron++
	g.neurons[id] = &NeuronEntry{ID: id, Layer: layer, Model: n, Recorder: rec}
	g.neuronOrder = append(g.neuronOrder, id)

	if _, ok := g.layers[layer]; !ok {
		g.layerOrder = append(g.layerOrder, layer)
	}
	g.layers[layer] = append(g.layers[layer], id)
	return id, nil
}

// RemoveNeuron deletes a neuron. Synapses that reference it stay in the
// graph; operations on them skip the missing endpoint.
func (g *Graph) RemoveNeuron(id models.NeuronID) bool {
	e, ok := g.neurons[id]
	if !ok {
		return false
	}
	delete(g.neurons, id)
	g.neuronOrder = deleteSorted(g.neuronOrder, id)
	g.layers[e.Layer] = slices.DeleteFunc(g.layers[e.Layer], func(x models.NeuronID) bool { return x == id })
	return true
}

// Neuron looks up a live neuron.
func (g *Graph) Neuron(id models.NeuronID) (*NeuronEntry, bool) {
	e, ok := g.neurons[id]
	return e, ok
}

// AddSynapse inserts s. Both endpoints must be live neurons.
func (g *Graph) AddSynapse(s synapses.Synapse) (models.SynapseID, error) {
	pre, post := s.Presynaptic(), s.Postsynaptic()
	if _, ok := g.neurons[pre]; !ok {
		return 0, fmt.Errorf("add synapse: presynaptic %s: %w", pre, ErrUnknownNeuron)
	}
	if _, ok := g.neurons[post]; !ok {
		return 0, fmt.Errorf("add synapse: postsynaptic %s: %w", post, ErrUnknownNeuron)
	}

	id := g.nextSynapse
	g.nextSynapse++
	g.synapses[id] = s
	g.synapseOrder = append(g.synapseOrder, id)
	g.outgoing[pre] = append(g.outgoing[pre], id)
	g.incoming[post] = append(g.incoming[post], id)
	return id, nil
}

// Synapse looks up a synapse.
func (g *Graph) Synapse(id models.SynapseID) (synapses.Synapse, bool) {
	s, ok := g.synapses[id]
	return s, ok
}

// RemoveSynapses deletes every listed synapse and returns how many existed.
func (g *Graph) RemoveSynapses(ids ...models.SynapseID) int {
	if len(ids) == 0 {
		return 0
	}
	gone := make(map[models.SynapseID]struct{}, len(ids))
	for _, id := range ids {
		s, ok := g.synapses[id]
		if !ok {
			continue
		}
		gone[id] = struct{}{}
		delete(g.synapses, id)
		g.outgoing[s.Presynaptic()] = removeIDs(g.outgoing[s.Presynaptic()], gone)
		g.incoming[s.Postsynaptic()] = removeIDs(g.incoming[s.Postsynaptic()], gone)
	}
	g.synapseOrder = removeIDs(g.synapseOrder, gone)
	return len(gone)
}

// NeuronIDs returns live neuron IDs in ascending order. The slice is shared
// and must not be modified.
func (g *Graph) NeuronIDs() []models.NeuronID { return g.neuronOrder }

// SynapseIDs returns synapse IDs in ascending order. The slice is shared and
// must not be modified.
func (g *Graph) SynapseIDs() []models.SynapseID { return g.synapseOrder }

// Outgoing returns the synapses whose presynaptic neuron is id.
func (g *Graph) Outgoing(id models.NeuronID) []models.SynapseID { return g.outgoing[id] }

// Incoming returns the synapses whose postsynaptic neuron is id.
func (g *Graph) Incoming(id models.NeuronID) []models.SynapseID { return g.incoming[id] }

// Layer returns the neurons of a layer in insertion order.
func (g *Graph) Layer(name string) ([]models.NeuronID, error) {
	ids, ok := g.layers[name]
	if !ok {
		return nil, fmt.Errorf("layer %q: %w", name, ErrUnknownLayer)
	}
	return ids, nil
}

// Layers returns layer names in creation order.
func (g *Graph) Layers() []string { return g.layerOrder }

func (g *Graph) NumNeurons() int  { return len(g.neurons) }
func (g *Graph) NumSynapses() int { return len(g.synapses) }

func deleteSorted(ids []models.NeuronID, id models.NeuronID) []models.NeuronID {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids
	}
	return slices.Delete(ids, i, i+1)
}

func removeIDs(ids []models.SynapseID, gone map[models.SynapseID]struct{}) []models.SynapseID {
	return slices.DeleteFunc(ids, func(id models.SynapseID) bool {
		_, ok := gone[id]
		return ok
	})
}
