package analytics

import (
	"errors"
	"sort"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
)

// DefaultWindow is the default history kept per trace, in simulated seconds.
const DefaultWindow = 10.0

// Config configures a Watcher.
type Config struct {
	// Window is how much simulated history each trace keeps.
	Window float64 `json:"window" yaml:"window"`

	// Neurons and Synapses select what to record. Empty means everything
	// in the graph at sample time.
	Neurons  []models.NeuronID  `json:"neurons,omitempty" yaml:"neurons,omitempty"`
	Synapses []models.SynapseID `json:"synapses,omitempty" yaml:"synapses,omitempty"`
}

// Watcher samples membrane potentials and synapse weights after each tick.
// It is not safe for concurrent use; the simulator calls it under its lock.
type Watcher struct {
	config   Config
	membrane map[models.NeuronID]*ValueRecorder
	spikes   map[models.NeuronID][]float64
	weights  map[models.SynapseID]*ValueRecorder
}

// NewWatcher creates a watcher. A zero Window uses DefaultWindow.
func NewWatcher(config Config) (*Watcher, error) {
	if config.Window == 0 {
		config.Window = DefaultWindow
	}
	if !(config.Window > 0) {
		return nil, errors.New("analytics: window must be positive")
	}
	return &Watcher{
		config:   config,
		membrane: make(map[models.NeuronID]*ValueRecorder),
		spikes:   make(map[models.NeuronID][]float64),
		weights:  make(map[models.SynapseID]*ValueRecorder),
	}, nil
}

// Sample records the current state of g at time now, marks fired neurons,
// and trims every trace to the window. Removed neurons and pruned synapses
// stop receiving samples and age out.
func (w *Watcher) Sample(g *network.Graph, now float64, fired []models.Spike) {
	neuronIDs := w.config.Neurons
	if len(neuronIDs) == 0 {
		neuronIDs = g.NeuronIDs()
	}
	for _, id := range neuronIDs {
		entry, ok := g.Neuron(id)
		if !ok {
			continue
		}
		rec := w.membrane[id]
		if rec == nil {
			rec = &ValueRecorder{}
			w.membrane[id] = rec
		}
		rec.Push(now, entry.Model.Potential())
	}
	for _, sp := range fired {
		if _, watched := w.membrane[sp.Neuron]; watched {
			w.spikes[sp.Neuron] = append(w.spikes[sp.Neuron], sp.Time)
		}
	}

	synapseIDs := w.config.Synapses
	if len(synapseIDs) == 0 {
		synapseIDs = g.SynapseIDs()
	}
	for _, id := range synapseIDs {
		s, ok := g.Synapse(id)
		if !ok {
			continue
		}
		rec := w.weights[id]
		if rec == nil {
			rec = &ValueRecorder{}
			w.weights[id] = rec
		}
		rec.Push(now, s.Weight())
	}

	w.trim(now)
}

func (w *Watcher) trim(now float64) {
	for _, rec := range w.membrane {
		rec.Trim(now, w.config.Window)
	}
	for _, rec := range w.weights {
		rec.Trim(now, w.config.Window)
	}
	for id, times := range w.spikes {
		cut := sort.Search(len(times), func(i int) bool { return now-times[i] < w.config.Window })
		if cut == len(times) {
			delete(w.spikes, id)
			continue
		}
		w.spikes[id] = times[cut:]
	}
}

// Membrane returns the potential trace of a neuron.
func (w *Watcher) Membrane(id models.NeuronID) []Point {
	if rec, ok := w.membrane[id]; ok {
		return rec.Points()
	}
	return nil
}

// SpikeTimes returns the fire times of a neuron inside the window.
func (w *Watcher) SpikeTimes(id models.NeuronID) []float64 {
	return append([]float64(nil), w.spikes[id]...)
}

// Weight returns the weight trace of a synapse.
func (w *Watcher) Weight(id models.SynapseID) []Point {
	if rec, ok := w.weights[id]; ok {
		return rec.Points()
	}
	return nil
}

// Window returns the configured history length.
func (w *Watcher) Window() float64 { return w.config.Window }
