package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/ratelimit"
)

// defaultSynapseLimit caps silicon_synapses output when no limit is given.
const defaultSynapseLimit = 200

// registerTools registers all silicon MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "silicon_step",
		Description: "Advance the simulation by a number of ticks, optionally injecting current first",
	}, s.handleStep)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "silicon_status",
		Description: "Report clock, counters, learning state and per-layer activity",
	}, s.handleStatus)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "silicon_neuron",
		Description: "Inspect one neuron: potential, activation and recorded spikes",
	}, s.handleNeuron)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "silicon_synapses",
		Description: "List synapses with their weights, optionally filtered to one neuron",
	}, s.handleSynapses)
}

// handleStep implements the silicon_step tool.
func (s *Server) handleStep(ctx context.Context, req *sdk.CallToolRequest, args StepInput) (_ *sdk.CallToolResult, _ StepOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("silicon_step", start, retErr, map[string]string{
			"ticks":  fmt.Sprint(args.Ticks),
			"inject": fmt.Sprint(len(args.Inject)),
		})
	}()

	ticks := args.Ticks
	if ticks == 0 {
		ticks = 1
	}
	if ticks < 0 || ticks > MaxStepTicks {
		return nil, StepOutput{}, fmt.Errorf("ticks must be between 1 and %d, got %d", MaxStepTicks, args.Ticks)
	}
	if err := ratelimit.CheckTicks(s.toolLimiters, "silicon_step", ticks); err != nil {
		return nil, StepOutput{}, err
	}

	for _, inj := range args.Inject {
		if _, err := s.sim.InjectCurrent(models.NeuronID(inj.Neuron), inj.Current); err != nil {
			return nil, StepOutput{}, err
		}
	}
	if args.AddBudget > 0 {
		s.sim.AddBudget(args.AddBudget)
	}

	sum, err := s.sim.Run(ctx, ticks)
	if err != nil {
		return nil, StepOutput{}, fmt.Errorf("step: %w", err)
	}

	msg := fmt.Sprintf("ran %d ticks to t=%.3f, %d spikes, %d rewards", sum.Ticks, sum.Time, sum.Spikes, sum.Rewards)
	if sum.Paused {
		msg += "; clock paused (use add_budget to continue)"
	}
	s.logger.Debug("mcp step", "ticks", sum.Ticks, "time", sum.Time)
	return nil, StepOutput{
		Summary:   sum,
		Remaining: s.sim.Snapshot().Remaining,
		Message:   msg,
	}, nil
}

// handleStatus implements the silicon_status tool.
func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, args StatusInput) (_ *sdk.CallToolResult, _ StatusOutput, retErr error) {
	start := time.Now()
	defer func() { s.auditTool("silicon_status", start, retErr, nil) }()

	if err := ratelimit.CheckLimit(s.toolLimiters, "silicon_status"); err != nil {
		return nil, StatusOutput{}, err
	}

	snap := s.sim.Snapshot()
	out := StatusOutput{
		Time:            snap.Time,
		Remaining:       snap.Remaining,
		RunIndefinitely: snap.RunIndefinitely,
		Neurons:         len(snap.Neurons),
		Synapses:        snap.SynapseCount,
		Stats:           snap.Stats,
		Class:           snap.Class,
		NextReward:      snap.NextReward,
		QueueLen:        snap.QueueLen,
		QueueDropped:    snap.QueueDropped,
		LastOutcome:     snap.LastOutcome,
		RunID:           snap.RecordedRunID,
	}

	index := make(map[string]int)
	for _, n := range snap.Neurons {
		i, ok := index[n.Layer]
		if !ok {
			i = len(out.Layers)
			index[n.Layer] = i
			out.Layers = append(out.Layers, LayerSummary{Name: n.Layer})
		}
		l := &out.Layers[i]
		l.Size++
		l.MeanActivation += n.Activation
		l.Spikes += n.SpikeCount
	}
	for i := range out.Layers {
		out.Layers[i].MeanActivation /= float64(out.Layers[i].Size)
	}
	return nil, out, nil
}

// handleNeuron implements the silicon_neuron tool.
func (s *Server) handleNeuron(ctx context.Context, req *sdk.CallToolRequest, args NeuronInput) (_ *sdk.CallToolResult, _ NeuronOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("silicon_neuron", start, retErr, map[string]string{"id": fmt.Sprint(args.ID)})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "silicon_neuron"); err != nil {
		return nil, NeuronOutput{}, err
	}

	id := models.NeuronID(args.ID)
	state, err := s.sim.Neuron(id)
	if err != nil {
		return nil, NeuronOutput{}, err
	}
	spikes, err := s.sim.Spikes(id)
	if err != nil {
		return nil, NeuronOutput{}, err
	}
	return nil, NeuronOutput{
		Neuron:   state,
		Spikes:   spikes,
		Membrane: s.sim.Membrane(id),
	}, nil
}

// handleSynapses implements the silicon_synapses tool.
func (s *Server) handleSynapses(ctx context.Context, req *sdk.CallToolRequest, args SynapsesInput) (_ *sdk.CallToolResult, _ SynapsesOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("silicon_synapses", start, retErr, map[string]string{
			"neuron": fmt.Sprint(args.Neuron),
			"limit":  fmt.Sprint(args.Limit),
		})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "silicon_synapses"); err != nil {
		return nil, SynapsesOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultSynapseLimit
	}

	all := s.sim.Synapses(models.NeuronID(args.Neuron))
	out := SynapsesOutput{Synapses: all, Count: len(all)}
	if len(all) > limit {
		out.Synapses = all[:limit]
		out.Truncated = true
	}
	return nil, out, nil
}
