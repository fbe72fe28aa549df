package simulation

import (
	"strconv"

	"github.com/nvandessel/silicon/internal/config"
	"github.com/nvandessel/silicon/internal/engine"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/neurons"
	"github.com/nvandessel/silicon/internal/synapses"
)

// LIFLayer returns a layer of default LIF neurons.
func LIFLayer(name string, size int) network.LayerSpec {
	return network.LayerSpec{
		Name:   name,
		Size:   size,
		Neuron: neurons.Spec{Kind: neurons.KindLIF, LIF: neurons.DefaultLIFParams()},
	}
}

// ChainConfig builds a learning-free config of single-neuron LIF layers
// l0 -> l1 -> ... with fixed-weight synapses of kind.
func ChainConfig(length int, weight float64, kind synapses.Kind) *config.SiliconConfig {
	cfg := config.Default()
	cfg.Learning.Enabled = false
	cfg.Network = network.Topology{Synapse: synapses.Spec{Kind: kind, STDP: synapses.DefaultStdpParams()}}
	for i := 0; i < length; i++ {
		cfg.Network.Layers = append(cfg.Network.Layers, LIFLayer(layerName(i), 1))
		if i > 0 {
			cfg.Network.Connections = append(cfg.Network.Connections, network.ConnectionSpec{
				From:            layerName(i - 1),
				To:              layerName(i),
				Chance:          1,
				ExcitatoryRatio: 1,
				Weights:         network.WeightRange{Min: weight, Max: weight},
			})
		}
	}
	return cfg
}

func layerName(i int) string {
	return "l" + strconv.Itoa(i)
}

// Drive returns a BeforeTick hook that injects current into neuron on the
// given ticks.
func Drive(neuron models.NeuronID, current float64, ticks ...int) func(int, *engine.Simulator) {
	due := make(map[int]bool, len(ticks))
	for _, t := range ticks {
		due[t] = true
	}
	return func(tick int, sim *engine.Simulator) {
		if due[tick] {
			sim.InjectCurrent(neuron, current)
		}
	}
}
