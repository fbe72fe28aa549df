// Package checkpoint saves and restores learned synapse state so a trained
// network can be resumed. The topology itself is not stored: a checkpoint
// applies only to a graph built from the same configuration and seed.
package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/synapses"
)

// ErrTopologyMismatch is returned when a checkpoint does not fit the graph
// it is applied to.
var ErrTopologyMismatch = errors.New("checkpoint does not match network topology")

// SynapseState is the learned state of one synapse.
type SynapseState struct {
	ID     models.SynapseID `json:"id"`
	Pre    models.NeuronID  `json:"pre"`
	Post   models.NeuronID  `json:"post"`
	Weight float64          `json:"weight"`

	// Trace and LastSide are set for STDP synapses only.
	Trace    *float64         `json:"trace,omitempty"`
	LastSide models.SpikeSide `json:"last_side,omitempty"`
}

// Checkpoint is the payload of a checkpoint file.
type Checkpoint struct {
	CreatedAt   time.Time         `json:"created_at"`
	Time        float64           `json:"time"`
	NeuronCount int               `json:"neuron_count"`
	Synapses    []SynapseState    `json:"synapses"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ApplyResult reports what Apply changed.
type ApplyResult struct {
	Restored int `json:"restored"`
	// Removed counts graph synapses absent from the checkpoint, i.e. pruned
	// before it was taken.
	Removed int `json:"removed"`
}

// Capture records every surviving synapse of g at simulated time now.
func Capture(g *network.Graph, now float64) *Checkpoint {
	c := &Checkpoint{
		CreatedAt:   time.Now().UTC(),
		Time:        now,
		NeuronCount: g.NumNeurons(),
		Synapses:    make([]SynapseState, 0, g.NumSynapses()),
	}
	for _, sid := range g.SynapseIDs() {
		syn, ok := g.Synapse(sid)
		if !ok {
			continue
		}
		st := SynapseState{
			ID:     sid,
			Pre:    syn.Presynaptic(),
			Post:   syn.Postsynaptic(),
			Weight: syn.Weight(),
		}
		if stdp, ok := syn.(*synapses.STDP); ok {
			trace := stdp.State.Trace
			st.Trace = &trace
			st.LastSide = stdp.State.LastSide
		}
		c.Synapses = append(c.Synapses, st)
	}
	return c
}

// Apply restores weights and traces into g and removes synapses the
// checkpoint no longer holds. g is left untouched when the checkpoint does
// not match.
func (c *Checkpoint) Apply(g *network.Graph) (ApplyResult, error) {
	if c.NeuronCount != g.NumNeurons() {
		return ApplyResult{}, fmt.Errorf("%w: %d neurons, network has %d", ErrTopologyMismatch, c.NeuronCount, g.NumNeurons())
	}

	saved := make(map[models.SynapseID]SynapseState, len(c.Synapses))
	for _, st := range c.Synapses {
		syn, ok := g.Synapse(st.ID)
		if !ok {
			return ApplyResult{}, fmt.Errorf("%w: synapse %s not in network", ErrTopologyMismatch, st.ID)
		}
		if syn.Presynaptic() != st.Pre || syn.Postsynaptic() != st.Post {
			return ApplyResult{}, fmt.Errorf("%w: synapse %s connects %s->%s, checkpoint has %s->%s",
				ErrTopologyMismatch, st.ID, syn.Presynaptic(), syn.Postsynaptic(), st.Pre, st.Post)
		}
		saved[st.ID] = st
	}

	var res ApplyResult
	var removed []models.SynapseID
	for _, sid := range g.SynapseIDs() {
		st, ok := saved[sid]
		if !ok {
			removed = append(removed, sid)
			continue
		}
		syn, _ := g.Synapse(sid)
		syn.SetWeight(st.Weight)
		if stdp, ok := syn.(*synapses.STDP); ok && st.Trace != nil {
			stdp.State.Trace = *st.Trace
			stdp.State.LastSide = st.LastSide
		}
		res.Restored++
	}
	res.Removed = g.RemoveSynapses(removed...)
	return res, nil
}
