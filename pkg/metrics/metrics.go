// Package metrics provides Prometheus metrics for simulation batches.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the Prometheus collectors for the simulator.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  prometheus.Registerer

	// Batch progress
	batchesStarted   prometheus.Counter
	replaysCompleted prometheus.Counter
	replaysFailed    prometheus.Counter
	replayDuration   prometheus.Histogram

	// Race-level observations
	dnfTotal        *prometheus.CounterVec
	cautionLaps     prometheus.Counter
	pitStopDuration prometheus.Histogram

	// Operational state
	activeWorkers prometheus.Gauge
	gridSize      prometheus.Gauge
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithDurationBuckets sets histogram buckets for duration metrics, in seconds.
func WithDurationBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry sets a custom Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "racesim",
		subsystem: "engine",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.batchesStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_started_total",
		Help:      "Number of Monte Carlo batches started.",
	})
	m.replaysCompleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replays_completed_total",
		Help:      "Number of race replays completed successfully.",
	})
	m.replaysFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replays_failed_total",
		Help:      "Number of race replays aborted by configuration errors.",
	})
	m.replayDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "replay_duration_seconds",
		Help:      "Wall-clock duration of a single race replay.",
		Buckets:   m.buckets,
	})
	m.dnfTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dnf_total",
		Help:      "Simulated retirements, partitioned by cause.",
	}, []string{"cause"})
	m.cautionLaps = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "caution_laps_total",
		Help:      "Simulated laps run under caution.",
	})
	m.pitStopDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pit_stop_duration_seconds",
		Help:      "Sampled stationary pit stop durations.",
		Buckets:   []float64{1, 2, 3, 4, 5, 7.5, 10, 15, 30, 60},
	})
	m.activeWorkers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_workers",
		Help:      "Number of Monte Carlo worker goroutines.",
	})
	m.gridSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grid_size",
		Help:      "Number of drivers on the simulated grid.",
	})

	return m
}

// Global manager backed by its own registry so default Go collectors
// do not leak into simulator metrics.
var (
	registry      = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton metrics registry
	globalManager = NewManager(WithRegistry(registry))
)

// Registry returns the gatherer for exposing /metrics.
func Registry() *prometheus.Registry { return registry }

// RecordBatchStarted increments the started-batch counter.
func RecordBatchStarted() { globalManager.batchesStarted.Inc() }

// RecordReplayCompleted records a finished replay and its duration in seconds.
func RecordReplayCompleted(seconds float64) {
	globalManager.replaysCompleted.Inc()
	globalManager.replayDuration.Observe(seconds)
}

// RecordReplayFailed increments the failed-replay counter.
func RecordReplayFailed() { globalManager.replaysFailed.Inc() }

// RecordDNF records a simulated retirement with its cause label.
func RecordDNF(cause string) { globalManager.dnfTotal.WithLabelValues(cause).Inc() }

// RecordCautionLap counts one simulated lap under caution.
func RecordCautionLap() { globalManager.cautionLaps.Inc() }

// RecordPitStopDuration observes a sampled stationary time in seconds.
func RecordPitStopDuration(seconds float64) { globalManager.pitStopDuration.Observe(seconds) }

// UpdateActiveWorkers sets the worker gauge.
func UpdateActiveWorkers(n int) { globalManager.activeWorkers.Set(float64(n)) }

// UpdateGridSize sets the grid size gauge.
func UpdateGridSize(n int) { globalManager.gridSize.Set(float64(n)) }
