package pipeline

import (
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
)

// Prune removes every synapse of g whose weight is below threshold and
// returns the removed IDs in ascending order.
func Prune(g *network.Graph, threshold float64) []models.SynapseID {
	var weak []models.SynapseID
	for _, sid := range g.SynapseIDs() {
		s, _ := g.Synapse(sid)
		if s.Weight() < threshold {
			weak = append(weak, sid)
		}
	}
	g.RemoveSynapses(weak...)
	return weak
}
