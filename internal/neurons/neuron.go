// Package neurons implements the integrate-and-fire neuron models used by the
// simulator. The set of models is closed: leaky integrate-and-fire (LIF) and
// Izhikevich. Both integrate with a fixed-step explicit Euler update.
package neurons

// Kind names a neuron model.
type Kind string

const (
	KindLIF        Kind = "lif"
	KindIzhikevich Kind = "izhikevich"
)

// Neuron is the contract every model satisfies.
type Neuron interface {
	// Integrate advances the model by one step of size tau and reports
	// whether the neuron fired.
	Integrate(tau float64) bool

	// Potential returns the current membrane potential in mV.
	Potential() float64

	// InjectCurrent applies delta to the membrane immediately and returns
	// the new potential. Negative delta hyperpolarizes.
	InjectCurrent(delta float64) float64

	// ActivationPercent maps the potential onto [0,1] for display.
	ActivationPercent() float64

	Kind() Kind
}

func clamp01(x float64) float64 {
	switch {
	case x != x: // NaN
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
