package export

import (
	"fmt"
	"strings"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// edgeColors maps synapse types to DOT colors.
var edgeColors = map[models.SynapseType]string{
	models.Excitatory: "forestgreen",
	models.Inhibitory: "firebrick",
}

// activationColor shades from light gray at rest to orange at threshold.
func activationColor(p float64) string {
	lerp := func(a, b int) int { return a + int(float64(b-a)*p) }
	return fmt.Sprintf("#%02x%02x%02x", lerp(0xee, 0xff), lerp(0xee, 0x8c), lerp(0xee, 0x00))
}

// RenderDOT produces a Graphviz DOT representation of the network. Each
// layer is a cluster; nodes are shaded by activation; edge width follows
// weight.
func RenderDOT(g *network.Graph) string {
	var b strings.Builder
	b.WriteString("digraph silicon {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=9, arrowsize=0.6];\n\n")

	for i, layer := range g.Layers() {
		ids, _ := g.Layer(layer)
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%q;\n", layer)
		for _, id := range ids {
			entry, ok := g.Neuron(id)
			if !ok {
				continue
			}
			act := entry.Model.ActivationPercent()
			fmt.Fprintf(&b, "    %q [fillcolor=%q, tooltip=\"%s v=%.2f\"];\n",
				id.String(), activationColor(act), entry.Model.Kind(), entry.Model.Potential())
		}
		b.WriteString("  }\n")
	}
	b.WriteString("\n")

	for _, sid := range g.SynapseIDs() {
		s, ok := g.Synapse(sid)
		if !ok {
			continue
		}
		color := edgeColors[s.Type()]
		if color == "" {
			color = "gray"
		}
		fmt.Fprintf(&b, "  %q -> %q [color=%q, penwidth=%.2f, tooltip=\"%s w=%.3f\"];\n",
			s.Presynaptic().String(), s.Postsynaptic().String(), color, 0.5+s.Weight(), sid, s.Weight())
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready graph with nodes and edges arrays.
func RenderJSON(g *network.Graph) map[string]interface{} {
	nodes := make([]map[string]interface{}, 0, g.NumNeurons())
	for _, id := range g.NeuronIDs() {
		entry, _ := g.Neuron(id)
		nodes = append(nodes, map[string]interface{}{
			"id":         int64(id),
			"layer":      entry.Layer,
			"kind":       string(entry.Model.Kind()),
			"potential":  entry.Model.Potential(),
			"activation": entry.Model.ActivationPercent(),
			"spikes":     entry.Recorder.Len(),
		})
	}

	edges := make([]map[string]interface{}, 0, g.NumSynapses())
	for _, sid := range g.SynapseIDs() {
		s, _ := g.Synapse(sid)
		edges = append(edges, map[string]interface{}{
			"id":     int64(sid),
			"source": int64(s.Presynaptic()),
			"target": int64(s.Postsynaptic()),
			"type":   string(s.Type()),
			"kind":   string(s.Kind()),
			"weight": s.Weight(),
		})
	}

	return map[string]interface{}{
		"nodes":      nodes,
		"edges":      edges,
		"node_count": len(nodes),
		"edge_count": len(edges),
	}
}
