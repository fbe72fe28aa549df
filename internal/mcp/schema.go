package mcp

import (
	"github.com/nvandessel/silicon/internal/analytics"
	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/learning"
)

// MaxStepTicks bounds a single silicon_step call.
const MaxStepTicks = 100000

// Injection adds current to one neuron before stepping.
type Injection struct {
	Neuron  int64   `json:"neuron" jsonschema:"neuron ID"`
	Current float64 `json:"current" jsonschema:"current to inject (potential delta before resistance or multiplier)"`
}

// StepInput defines the input for silicon_step.
type StepInput struct {
	Ticks     int         `json:"ticks,omitempty" jsonschema:"number of ticks to run (default 1, max 100000)"`
	Inject    []Injection `json:"inject,omitempty" jsonschema:"currents applied before the first tick"`
	AddBudget float64     `json:"add_budget,omitempty" jsonschema:"simulated seconds added to the clock budget before stepping"`
}

// StepOutput defines the output for silicon_step.
type StepOutput struct {
	Summary   engine.RunSummary `json:"summary"`
	Remaining float64           `json:"remaining" jsonschema:"clock budget left in simulated seconds"`
	Message   string            `json:"message"`
}

// StatusInput defines the input for silicon_status.
type StatusInput struct{}

// StatusOutput defines the output for silicon_status.
type StatusOutput struct {
	Time            float64           `json:"time"`
	Remaining       float64           `json:"remaining"`
	RunIndefinitely bool              `json:"run_indefinitely"`
	Neurons         int               `json:"neurons"`
	Synapses        int               `json:"synapses"`
	Stats           engine.Stats      `json:"stats"`
	Class           int               `json:"class"`
	NextReward      float64           `json:"next_reward"`
	QueueLen        int               `json:"queue_len"`
	QueueDropped    uint64            `json:"queue_dropped"`
	LastOutcome     *learning.Outcome `json:"last_outcome,omitempty"`
	RunID           string            `json:"run_id,omitempty"`
	Layers          []LayerSummary    `json:"layers"`
}

// LayerSummary aggregates one layer.
type LayerSummary struct {
	Name           string  `json:"name"`
	Size           int     `json:"size"`
	MeanActivation float64 `json:"mean_activation"`
	Spikes         int     `json:"spikes" jsonschema:"recorded spikes across the layer"`
}

// NeuronInput defines the input for silicon_neuron.
type NeuronInput struct {
	ID int64 `json:"id" jsonschema:"neuron ID"`
}

// NeuronOutput defines the output for silicon_neuron.
type NeuronOutput struct {
	Neuron   engine.NeuronState `json:"neuron"`
	Spikes   []float64          `json:"spikes" jsonschema:"recorded fire times, oldest first"`
	Membrane []analytics.Point  `json:"membrane,omitempty" jsonschema:"recent potential trace when watching is enabled"`
}

// SynapsesInput defines the input for silicon_synapses.
type SynapsesInput struct {
	Neuron int64 `json:"neuron,omitempty" jsonschema:"only synapses touching this neuron"`
	Limit  int   `json:"limit,omitempty" jsonschema:"maximum synapses returned (default 200)"`
}

// SynapsesOutput defines the output for silicon_synapses.
type SynapsesOutput struct {
	Synapses  []engine.SynapseState `json:"synapses"`
	Count     int                   `json:"count" jsonschema:"total matching synapses before the limit"`
	Truncated bool                  `json:"truncated"`
}
