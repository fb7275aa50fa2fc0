// Package metrics exposes Prometheus collectors for fusion stores.
//
// A single *Metrics can be shared by every store in a process. Each series
// carries a "store" label with the store name. All methods are safe on a
// nil *Metrics, so stores built without WithMetrics pay nothing.
//
// Metrics collected:
//   - fusion_sets_total: accepted writes by store
//   - fusion_noop_sets_total: writes dropped because the value was equal
//   - fusion_notifications_total: subscriber callbacks invoked
//   - fusion_persist_writes_total: adapter writes by outcome
//   - fusion_persist_errors_total: persistence failures by code
//   - fusion_hydration_duration_seconds: time from construction to hydrated
//   - fusion_keys: number of keys currently held
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "fusion").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for hydration duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "fusion",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors shared by fusion stores.
type Metrics struct {
	sets              *prometheus.CounterVec
	noopSets          *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	persistWrites     *prometheus.CounterVec
	persistErrors     *prometheus.CounterVec
	hydrationDuration *prometheus.HistogramVec
	keys              *prometheus.GaugeVec
}

// New registers the collectors with the configured registry.
// It panics if they are already registered there, like promauto.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		sets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sets_total",
			Help:        "Total number of accepted state writes",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		noopSets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "noop_sets_total",
			Help:        "Total number of writes skipped because the value did not change",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of subscriber callbacks invoked",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		persistWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_writes_total",
			Help:        "Total number of persisted record writes by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "status"}),

		persistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_errors_total",
			Help:        "Total number of persistence failures by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "code"}),

		hydrationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hydration_duration_seconds",
			Help:        "Time from store construction until hydration completed",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store", "status"}),

		keys: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "keys",
			Help:        "Number of keys currently held by the store",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),
	}
}

// RecordSet counts an accepted write.
func (m *Metrics) RecordSet(store string) {
	if m == nil {
		return
	}
	m.sets.WithLabelValues(store).Inc()
}

// RecordNoopSet counts a write that was dropped as equal.
func (m *Metrics) RecordNoopSet(store string) {
	if m == nil {
		return
	}
	m.noopSets.WithLabelValues(store).Inc()
}

// RecordNotifications counts n subscriber callbacks.
func (m *Metrics) RecordNotifications(store string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.WithLabelValues(store).Add(float64(n))
}

// RecordPersistWrite counts an adapter write. err == nil is "ok".
func (m *Metrics) RecordPersistWrite(store string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.persistWrites.WithLabelValues(store, status).Inc()
}

// RecordPersistError counts a persistence failure under its error code.
func (m *Metrics) RecordPersistError(store, code string) {
	if m == nil {
		return
	}
	m.persistErrors.WithLabelValues(store, code).Inc()
}

// ObserveHydration records how long hydration took.
func (m *Metrics) ObserveHydration(store string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.hydrationDuration.WithLabelValues(store, status).Observe(d.Seconds())
}

// SetKeys records the current number of keys.
func (m *Metrics) SetKeys(store string, n int) {
	if m == nil {
		return
	}
	m.keys.WithLabelValues(store).Set(float64(n))
}

// Forget drops every series labelled with store. Call it when a store is
// closed so short-lived stores do not accumulate series.
func (m *Metrics) Forget(store string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"store": store}
	m.sets.DeletePartialMatch(labels)
	m.noopSets.DeletePartialMatch(labels)
	m.notifications.DeletePartialMatch(labels)
	m.persistWrites.DeletePartialMatch(labels)
	m.persistErrors.DeletePartialMatch(labels)
	m.hydrationDuration.DeletePartialMatch(labels)
	m.keys.DeletePartialMatch(labels)
}
