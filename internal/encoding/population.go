package encoding

import (
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/silicon/internal/models"
)

// Population strategies.
const (
	// Interleaved assigns neuron i to class i mod classes.
	Interleaved = "interleaved"
	// Sampled draws each neuron independently with a fixed rate.
	Sampled = "sampled"
)

// InterleavedPopulation returns the neurons of ids whose index modulo
// classes equals class.
func InterleavedPopulation(ids []models.NeuronID, class, classes int) []models.NeuronID {
	if classes <= 0 {
		return nil
	}
	var out []models.NeuronID
	for i := class % classes; i < len(ids); i += classes {
		out = append(out, ids[i])
	}
	return out
}

// SampledPopulation keeps each neuron with probability rate.
func SampledPopulation(ids []models.NeuronID, rate float64, rng *rand.Rand) []models.NeuronID {
	var out []models.NeuronID
	for _, id := range ids {
		if rng.Float64() < rate {
			out = append(out, id)
		}
	}
	return out
}

// Populations builds one population per class using strategy.
func Populations(strategy string, ids []models.NeuronID, classes int, rate float64, rng *rand.Rand) ([][]models.NeuronID, error) {
	pops := make([][]models.NeuronID, classes)
	for c := 0; c < classes; c++ {
		switch strategy {
		case Interleaved, "":
			pops[c] = InterleavedPopulation(ids, c, classes)
		case Sampled:
			if rate <= 0 || rate > 1 {
				return nil, fmt.Errorf("sample rate %v outside (0,1]", rate)
			}
			pops[c] = SampledPopulation(ids, rate, rng)
		default:
			return nil, fmt.Errorf("unknown population strategy %q", strategy)
		}
	}
	return pops, nil
}
