package learning

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/nvandessel/silicon/internal/encoding"
	"github.com/nvandessel/silicon/internal/logging"
	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/network"
	"github.com/nvandessel/silicon/internal/synapses"
)

// Class is one input pattern the network should learn to recognize.
type Class struct {
	Label string `json:"label" yaml:"label"`
	// Text is encoded into the spike train that drives the class's
	// input population.
	Text string `json:"text" yaml:"text"`
}

// Config holds the learning loop parameters.
type Config struct {
	InputLayer  string  `json:"input_layer" yaml:"input_layer"`
	OutputLayer string  `json:"output_layer" yaml:"output_layer"`
	Classes     []Class `json:"classes" yaml:"classes"`

	// TimeBetweenClasses is the presentation window length in simulated
	// seconds. Default: 5.
	TimeBetweenClasses float64 `json:"time_between_classes" yaml:"time_between_classes"`

	// TargetSpikes is how often the correct output should fire per window.
	TargetSpikes float64 `json:"target_spikes" yaml:"target_spikes"`

	// ExplorationMin and ExplorationMax bound the random reward used
	// when the computed reward is exactly zero.
	ExplorationMin float64 `json:"exploration_min" yaml:"exploration_min"`
	ExplorationMax float64 `json:"exploration_max" yaml:"exploration_max"`

	// CurrentMin and CurrentMax bound the current injected into each
	// population neuron per input spike.
	CurrentMin float64 `json:"current_min" yaml:"current_min"`
	CurrentMax float64 `json:"current_max" yaml:"current_max"`

	QueueCapacity int `json:"queue_capacity" yaml:"queue_capacity"`

	// Population is "interleaved" or "sampled".
	Population string  `json:"population" yaml:"population"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
}

// DefaultConfig returns the two-class "hello"/"world" setup.
func DefaultConfig() Config {
	return Config{
		InputLayer:  "input",
		OutputLayer: "output",
		Classes: []Class{
			{Label: "hello", Text: "hello"},
			{Label: "world", Text: "world"},
		},
		TimeBetweenClasses: 5,
		TargetSpikes:       3,
		ExplorationMin:     -2,
		ExplorationMax:     2,
		CurrentMin:         0.6,
		CurrentMax:         0.8,
		QueueCapacity:      DefaultQueueCapacity,
		Population:         encoding.Interleaved,
		SampleRate:         0.5,
	}
}

// Validate checks the configuration without touching a graph.
func (c Config) Validate() error {
	if len(c.Classes) == 0 {
		return errors.New("learning: at least one class is required")
	}
	if !(c.TimeBetweenClasses > 0) {
		return errors.New("learning: time_between_classes must be positive")
	}
	if c.TargetSpikes < 0 {
		return errors.New("learning: target_spikes must be >= 0")
	}
	if c.ExplorationMin > c.ExplorationMax {
		return errors.New("learning: exploration_min exceeds exploration_max")
	}
	if c.CurrentMin > c.CurrentMax {
		return errors.New("learning: current_min exceeds current_max")
	}
	if c.QueueCapacity < 0 {
		return errors.New("learning: queue_capacity must be >= 0")
	}
	return nil
}

// Outcome describes one reward application.
type Outcome struct {
	Time      float64 `json:"time"`
	Class     int     `json:"class"`
	Correct   float64 `json:"correct"`
	Wrong     float64 `json:"wrong"`
	Raw       float64 `json:"raw"`
	Reward    float64 `json:"reward"`
	Explored  bool    `json:"explored"`
	Applied   int     `json:"applied"`
	Discarded int     `json:"discarded"`
}

// Loop presents classes to the network and applies reward-modulated
// plasticity at the end of every presentation window.
type Loop struct {
	config Config
	graph  *network.Graph
	queue  *DeferredQueue
	rng    *rand.Rand
	logger *slog.Logger
	events *logging.EventLogger

	populations [][]models.NeuronID
	outputs     []models.NeuronID

	class       int
	nextReward  float64
	windowStart float64
	rewarded    bool
	train       []float64
	trainCursor int
	started     bool
	lastDropped uint64
}

// NewLoop binds a loop to the input and output layers of g. logger and
// events may be nil.
func NewLoop(g *network.Graph, config Config, seed uint64, logger *slog.Logger, events *logging.EventLogger) (*Loop, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	inputs, err := g.Layer(config.InputLayer)
	if err != nil {
		return nil, fmt.Errorf("learning: input: %w", err)
	}
	outputs, err := g.Layer(config.OutputLayer)
	if err != nil {
		return nil, fmt.Errorf("learning: output: %w", err)
	}

	rng := rand.New(rand.NewPCG(seed, seed+1))
	pops, err := encoding.Populations(config.Population, inputs, len(config.Classes), config.SampleRate, rng)
	if err != nil {
		return nil, fmt.Errorf("learning: %w", err)
	}

	return &Loop{
		config:      config,
		graph:       g,
		queue:       NewDeferredQueue(config.QueueCapacity),
		rng:         rng,
		logger:      logger,
		events:      events,
		populations: pops,
		outputs:     append([]models.NeuronID(nil), outputs...),
	}, nil
}

// Queue returns the deferred event queue. It satisfies pipeline.Sink.
func (l *Loop) Queue() *DeferredQueue { return l.queue }

// Class returns the index of the class being presented.
func (l *Loop) Class() int { return l.class }

// NextReward returns the simulated time of the next reward.
func (l *Loop) NextReward() float64 { return l.nextReward }

// Start presents the first class at time now.
func (l *Loop) Start(now float64) {
	l.class = 0
	l.present(now)
	l.started = true
}

// Tick injects any input spikes due at now and, once the window has
// elapsed, applies reward and moves to the next class. It returns the
// reward outcome when one was applied.
func (l *Loop) Tick(now float64) *Outcome {
	if !l.started {
		l.Start(now)
	}

	if d := l.queue.Dropped(); d > l.lastDropped {
		l.logger.Warn("deferred queue overflow", "dropped", d-l.lastDropped, "capacity", l.queue.Cap())
		l.events.Log(logging.EventQueueOverflow, now, map[string]any{"dropped": d - l.lastDropped})
		l.lastDropped = d
	}

	l.injectDue(now)

	if now < l.nextReward {
		return nil
	}

	out := l.reward(now)
	l.rewarded = true
	l.class = (l.class + 1) % len(l.config.Classes)
	l.present(now)
	return &out
}

// present schedules the next window and loads the class's spike train.
func (l *Loop) present(now float64) {
	window := l.config.TimeBetweenClasses
	l.windowStart = now
	l.nextReward = now + window
	l.train = encoding.StringToSpikeTrain(l.config.Classes[l.class].Text, window)
	for i := range l.train {
		l.train[i] += now
	}
	l.trainCursor = 0
	l.logger.Debug("presenting class", "class", l.config.Classes[l.class].Label, "spikes", len(l.train), "time", now)
	l.events.Log(logging.EventPresentation, now, map[string]any{"class": l.class, "label": l.config.Classes[l.class].Label})
}

func (l *Loop) injectDue(now float64) {
	pop := l.populations[l.class]
	for l.trainCursor < len(l.train) && l.train[l.trainCursor] <= now {
		l.trainCursor++
		for _, id := range pop {
			n, ok := l.graph.Neuron(id)
			if !ok {
				continue
			}
			n.Model.InjectCurrent(l.uniform(l.config.CurrentMin, l.config.CurrentMax))
		}
	}
}

// reward scores the window ending at now and drains the queue into the
// synapses with the resulting reward.
func (l *Loop) reward(now float64) Outcome {
	correct, wrong := l.classSpikes()

	raw := Reward(correct, wrong, l.config.TargetSpikes)
	r, explored := raw, false
	if r == 0 {
		r = l.uniform(l.config.ExplorationMin, l.config.ExplorationMax)
		explored = true
	}

	applied, discarded := l.ApplyReward(r)
	out := Outcome{
		Time:      now,
		Class:     l.class,
		Correct:   correct,
		Wrong:     wrong,
		Raw:       raw,
		Reward:    r,
		Explored:  explored,
		Applied:   applied,
		Discarded: discarded,
	}

	l.logger.Debug("reward applied",
		"class", l.class, "correct", correct, "wrong", wrong,
		"reward", r, "explored", explored, "applied", applied, "discarded", discarded)
	l.events.Log(logging.EventReward, now, map[string]any{
		"class":     l.class,
		"correct":   correct,
		"wrong":     wrong,
		"reward":    r,
		"explored":  explored,
		"applied":   applied,
		"discarded": discarded,
	})
	return out
}

// classSpikes counts output spikes in the current window, split into the
// presented class and all others. Output neuron i belongs to class
// i mod len(classes). The first window is closed at its start; later
// windows open at the previous reward time, whose spikes were already
// scored.
func (l *Loop) classSpikes() (correct, wrong float64) {
	classes := len(l.config.Classes)
	for i, id := range l.outputs {
		n, ok := l.graph.Neuron(id)
		if !ok {
			continue
		}
		var count float64
		if l.rewarded {
			count = float64(n.Recorder.CountAfter(l.windowStart))
		} else {
			count = float64(n.Recorder.CountSince(l.windowStart))
		}
		if i%classes == l.class {
			correct += count
		} else {
			wrong += count
		}
	}
	return correct, wrong
}

// ApplyReward drains the deferred queue, scaling each event's delta by
// reward. Events whose synapse was pruned, or is not plastic, are
// discarded. The queue is always empty afterwards.
func (l *Loop) ApplyReward(reward float64) (applied, discarded int) {
	for _, ev := range l.queue.Drain() {
		s, ok := l.graph.Synapse(ev.Synapse)
		if !ok {
			discarded++
			continue
		}
		st, ok := s.(*synapses.STDP)
		if !ok {
			discarded++
			continue
		}
		st.ApplyDelta(ev.DeltaWeight, reward)
		applied++
	}
	return applied, discarded
}

func (l *Loop) uniform(lo, hi float64) float64 {
	return lo + l.rng.Float64()*(hi-lo)
}
