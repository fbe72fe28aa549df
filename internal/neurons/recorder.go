package neurons

import (
	"errors"
	"sort"
)

// DefaultMaxSpikes is the recorder capacity used when none is configured.
const DefaultMaxSpikes = 1000

// ErrInvalidCapacity is returned for a non-positive recorder capacity.
var ErrInvalidCapacity = errors.New("max_spikes must be positive")

// SpikeRecorder keeps the most recent spike times of one neuron. When full,
// the oldest timestamp is evicted.
type SpikeRecorder struct {
	maxSpikes int
	spikes    []float64
}

// NewSpikeRecorder creates a recorder holding at most maxSpikes entries.
func NewSpikeRecorder(maxSpikes int) (*SpikeRecorder, error) {
	if maxSpikes <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &SpikeRecorder{maxSpikes: maxSpikes}, nil
}

// Record appends a spike time, evicting the oldest beyond capacity.
func (r *SpikeRecorder) Record(t float64) {
	r.spikes = append(r.spikes, t)
	if over := len(r.spikes) - r.maxSpikes; over > 0 {
		// Shift in place so the backing array does not grow without bound.
		n := copy(r.spikes, r.spikes[over:])
		r.spikes = r.spikes[:n]
	}
}

// Spikes returns a copy of the recorded times, oldest first.
func (r *SpikeRecorder) Spikes() []float64 {
	out := make([]float64, len(r.spikes))
	copy(out, r.spikes)
	return out
}

// Len returns the number of recorded spikes.
func (r *SpikeRecorder) Len() int { return len(r.spikes) }

// Cap returns the configured capacity.
func (r *SpikeRecorder) Cap() int { return r.maxSpikes }

// CountSince returns how many spikes happened at or after t.
func (r *SpikeRecorder) CountSince(t float64) int {
	i := sort.SearchFloat64s(r.spikes, t)
	return len(r.spikes) - i
}

// CountAfter returns how many spikes happened strictly after t.
func (r *SpikeRecorder) CountAfter(t float64) int {
	i := sort.Search(len(r.spikes), func(i int) bool { return r.spikes[i] > t })
	return len(r.spikes) - i
}

// Last returns the most recent spike time.
func (r *SpikeRecorder) Last() (float64, bool) {
	if len(r.spikes) == 0 {
		return 0, false
	}
	return r.spikes[len(r.spikes)-1], true
}
