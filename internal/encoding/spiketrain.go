// Package encoding turns external input into spike times and neuron
// populations that the learning loop injects current into.
package encoding

import "sort"

// CharToSpikeTrain encodes the 8 bits of c, most significant first, as
// spike times within [0, frame). Bit i (from the left) spikes at
// i*frame/8 when set.
func CharToSpikeTrain(c byte, frame float64) []float64 {
	var train []float64
	for i := 0; i < 8; i++ {
		if c&(0x80>>i) != 0 {
			train = append(train, float64(i)*frame/8)
		}
	}
	return train
}

// StringToSpikeTrain encodes s so that the whole train spans frame. Each
// byte gets an equal slot and its bits are placed within that slot. The
// result is sorted ascending.
func StringToSpikeTrain(s string, frame float64) []float64 {
	if len(s) == 0 {
		return nil
	}
	slot := frame / float64(len(s))
	var train []float64
	for i := 0; i < len(s); i++ {
		offset := float64(i) * slot
		for _, t := range CharToSpikeTrain(s[i], slot) {
			train = append(train, offset+t)
		}
	}
	sort.Float64s(train)
	return train
}
