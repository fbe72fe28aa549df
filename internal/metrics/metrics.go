// Package metrics exposes simulator counters to Prometheus. Each Metrics
// owns its registry, so several simulators (or tests) never collide on
// the default registerer.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulator collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	spikes       prometheus.Counter
	propagated   prometheus.Counter
	skipped      prometheus.Counter
	pruned       prometheus.Counter
	rewards      *prometheus.CounterVec
	reward       prometheus.Histogram
	tickDuration prometheus.Histogram
	simTime      prometheus.Gauge
	queueLen     prometheus.Gauge
	synapses     prometheus.Gauge
}

// TickSample is what one tick contributes.
type TickSample struct {
	Time       float64
	Spikes     int
	Propagated int
	Skipped    int
	Pruned     int
	QueueLen   int
	Synapses   int
	Duration   time.Duration
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "silicon_ticks_total",
			Help: "Ticks advanced by the simulator",
		}),
		spikes: f.NewCounter(prometheus.CounterOpts{
			Name: "silicon_spikes_total",
			Help: "Neuron spikes emitted",
		}),
		propagated: f.NewCounter(prometheus.CounterOpts{
			Name: "silicon_propagated_total",
			Help: "Synaptic currents delivered to postsynaptic neurons",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "silicon_propagation_skipped_total",
			Help: "Propagations skipped because an endpoint no longer exists",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "silicon_synapses_pruned_total",
			Help: "Synapses removed for falling below the prune threshold",
		}),
		rewards: f.NewCounterVec(prometheus.CounterOpts{
			Name: "silicon_rewards_total",
			Help: "Rewards applied, by whether the value was an exploration sample",
		}, []string{"explored"}),
		reward: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "silicon_reward",
			Help:    "Distribution of applied reward values",
			Buckets: prometheus.LinearBuckets(-2, 0.5, 9),
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "silicon_tick_duration_seconds",
			Help:    "Wall-clock time spent per tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		simTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "silicon_sim_time_seconds",
			Help: "Current simulated time",
		}),
		queueLen: f.NewGauge(prometheus.GaugeOpts{
			Name: "silicon_deferred_queue_length",
			Help: "Plasticity events waiting for the next reward",
		}),
		synapses: f.NewGauge(prometheus.GaugeOpts{
			Name: "silicon_synapses",
			Help: "Live synapses in the network",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveTick records one advanced tick.
func (m *Metrics) ObserveTick(s TickSample) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.spikes.Add(float64(s.Spikes))
	m.propagated.Add(float64(s.Propagated))
	m.skipped.Add(float64(s.Skipped))
	m.pruned.Add(float64(s.Pruned))
	m.tickDuration.Observe(s.Duration.Seconds())
	m.simTime.Set(s.Time)
	m.queueLen.Set(float64(s.QueueLen))
	m.synapses.Set(float64(s.Synapses))
}

// ObserveReward records one applied reward.
func (m *Metrics) ObserveReward(reward float64, explored bool) {
	if m == nil {
		return
	}
	label := "false"
	if explored {
		label = "true"
	}
	m.rewards.WithLabelValues(label).Inc()
	m.reward.Observe(reward)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Metrics, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
