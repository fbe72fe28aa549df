package synapses

// Decay periodically lowers every synapse weight by a fixed amount. Pruning
// then removes synapses that decay below threshold.
type Decay struct {
	Interval float64 `json:"interval" yaml:"interval"`
	Amount   float64 `json:"amount" yaml:"amount"`

	next float64
}

// NewDecay creates a decay schedule whose first application is one
// interval after start.
func NewDecay(interval, amount, start float64) *Decay {
	return &Decay{Interval: interval, Amount: amount, next: start + interval}
}

// Due reports whether decay should run at now and, if so, schedules the
// next application. A nil or disabled Decay is never due.
func (d *Decay) Due(now float64) bool {
	if d == nil || d.Interval <= 0 || d.Amount == 0 {
		return false
	}
	if now < d.next {
		return false
	}
	d.next = now + d.Interval
	return true
}

// Apply lowers the weight of s by Amount.
func (d *Decay) Apply(s Synapse) {
	s.SetWeight(s.Weight() - d.Amount)
}

// Next returns the time of the next scheduled application.
func (d *Decay) Next() float64 { return d.next }
