package network

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/neurons"
	"github.com/nvandessel/silicon/internal/synapses"
)

// WeightRange is an inclusive range initial weights are drawn from.
type WeightRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultWeightRange is used for feed-forward connections.
var DefaultWeightRange = WeightRange{Min: 0.1, Max: 0.3}

// DefaultWTAWeightRange is used for the inhibitory links of a WTA layer.
var DefaultWTAWeightRange = WeightRange{Min: 2, Max: 4}

func (r WeightRange) validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("weight range min %v exceeds max %v", r.Min, r.Max)
	}
	return nil
}

func (r WeightRange) sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// ConnectOptions controls ConnectLayers.
type ConnectOptions struct {
	// Chance is the probability that a given pre/post pair is connected.
	Chance float64
	// ExcitatoryRatio is the probability that a new synapse is excitatory.
	ExcitatoryRatio float64
	// Weights defaults to DefaultWeightRange when zero.
	Weights WeightRange
	Synapse synapses.Spec
}

// NeuronFactory creates the model for one neuron of a layer.
type NeuronFactory func() (neurons.Neuron, error)

// Builder constructs layered networks on a Graph. All randomness comes from
// the builder's rng so a seed reproduces the same topology.
type Builder struct {
	graph *Graph
	rng   *rand.Rand
}

// NewBuilder creates a builder on g seeded with seed.
func NewBuilder(g *Graph, seed uint64) *Builder {
	return &Builder{graph: g, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Graph returns the graph being built.
func (b *Builder) Graph() *Graph { return b.graph }

// AddLayer appends a layer of size neurons created by factory.
func (b *Builder) AddLayer(name string, size int, factory NeuronFactory) ([]models.NeuronID, error) {
	if size <= 0 {
		return nil, fmt.Errorf("add layer %q: size must be positive", name)
	}
	if _, err := b.graph.Layer(name); err == nil {
		return nil, fmt.Errorf("add layer %q: layer exists", name)
	}

	ids := make([]models.NeuronID, 0, size)
	for i := 0; i < size; i++ {
		n, err := factory()
		if err != nil {
			return nil, fmt.Errorf("add layer %q: %w", name, err)
		}
		id, err := b.graph.AddNeuron(name, n)
		if err != nil {
			return nil, fmt.Errorf("add layer %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AddWTALayer adds a winner-take-all layer: every neuron inhibits every other
// neuron of the layer through a static synapse.
func (b *Builder) AddWTALayer(name string, size int, factory NeuronFactory, weights WeightRange) ([]models.NeuronID, error) {
	if weights == (WeightRange{}) {
		weights = DefaultWTAWeightRange
	}
	if err := weights.validate(); err != nil {
		return nil, fmt.Errorf("add wta layer %q: %w", name, err)
	}
	ids, err := b.AddLayer(name, size, factory)
	if err != nil {
		return nil, err
	}

	for _, pre := range ids {
		for _, post := range ids {
			if pre == post {
				continue
			}
			s, err := synapses.NewSimple(pre, post, models.Inhibitory, weights.sample(b.rng))
			if err != nil {
				return nil, err
			}
			if _, err := b.graph.AddSynapse(s); err != nil {
				return nil, fmt.Errorf("add wta layer %q: %w", name, err)
			}
		}
	}
	return ids, nil
}

// ConnectLayers wires src to dst. Each pair is kept with probability
// opts.Chance and is excitatory with probability opts.ExcitatoryRatio.
// It returns the number of synapses created.
func (b *Builder) ConnectLayers(src, dst string, opts ConnectOptions) (int, error) {
	if opts.Chance < 0 || opts.Chance > 1 {
		return 0, errors.New("connect layers: chance must be in [0,1]")
	}
	if opts.ExcitatoryRatio < 0 || opts.ExcitatoryRatio > 1 {
		return 0, errors.New("connect layers: excitatory ratio must be in [0,1]")
	}
	weights := opts.Weights
	if weights == (WeightRange{}) {
		weights = DefaultWeightRange
	}
	if err := weights.validate(); err != nil {
		return 0, fmt.Errorf("connect layers: %w", err)
	}

	pres, err := b.graph.Layer(src)
	if err != nil {
		return 0, fmt.Errorf("connect layers: %w", err)
	}
	posts, err := b.graph.Layer(dst)
	if err != nil {
		return 0, fmt.Errorf("connect layers: %w", err)
	}

	created := 0
	for _, pre := range pres {
		for _, post := range posts {
			if b.rng.Float64() >= opts.Chance {
				continue
			}
			typ := models.Inhibitory
			if b.rng.Float64() < opts.ExcitatoryRatio {
				typ = models.Excitatory
			}
			s, err := opts.Synapse.New(pre, post, typ, weights.sample(b.rng))
			if err != nil {
				return created, fmt.Errorf("connect layers %s->%s: %w", src, dst, err)
			}
			if _, err := b.graph.AddSynapse(s); err != nil {
				return created, fmt.Errorf("connect layers %s->%s: %w", src, dst, err)
			}
			created++
		}
	}
	return created, nil
}
