package store

import (
	"log/slog"
	"time"

	"github.com/vango-dev/fusion/pkg/batch"
	"github.com/vango-dev/fusion/pkg/metrics"
	"github.com/vango-dev/fusion/pkg/storage"
)

// Defaults.
const (
	DefaultNamespace     = "fusion"
	DefaultPersistPrefix = "persist."
	DefaultDebounce      = 100 * time.Millisecond
)

// Option configures a Store.
type Option func(*config)

type config struct {
	name           string
	adapter        storage.Adapter
	requirePersist bool
	namespace      string
	persistPrefix  string
	persistKeys    []string
	debounce       time.Duration
	scheduler      Scheduler
	batcher        batch.Batcher
	dispatcher     Dispatcher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	onError        func(error)
	devtools       bool
}

func defaultConfig() config {
	return config{
		namespace:     DefaultNamespace,
		persistPrefix: DefaultPersistPrefix,
		debounce:      DefaultDebounce,
		scheduler:     SystemScheduler,
		batcher:       batch.Immediate,
	}
}

// WithName sets the store name used in logs, metrics and the devtools
// registry. Default: a random UUID.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithAdapter enables persistence through a.
func WithAdapter(a storage.Adapter) Option {
	return func(c *config) {
		c.adapter = a
	}
}

// WithPersistence makes a missing adapter a construction error instead of
// silently running in memory.
func WithPersistence() Option {
	return func(c *config) {
		c.requirePersist = true
	}
}

// WithNamespace sets the adapter key the persisted record is stored under.
// Default: "fusion".
func WithNamespace(ns string) Option {
	return func(c *config) {
		c.namespace = ns
	}
}

// WithPersistPrefix sets the key prefix that marks a key as persisted.
// An empty prefix disables the convention. Default: "persist.".
func WithPersistPrefix(prefix string) Option {
	return func(c *config) {
		c.persistPrefix = prefix
	}
}

// WithPersistKeys marks keys as persisted by exact name, in addition to
// the prefix convention. They are stored under their full name.
func WithPersistKeys(keys ...string) Option {
	return func(c *config) {
		c.persistKeys = append(c.persistKeys, keys...)
	}
}

// WithDebounce sets the quiet period before a write-back. Default: 100ms.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// WithScheduler sets the scheduler used for debounced writes.
// Default: SystemScheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *config) {
		c.scheduler = s
	}
}

// WithBatcher sets the batcher wrapped around every notification fan-out.
// Pass the host runtime so re-renders coalesce. Default: batch.Immediate.
func WithBatcher(b batch.Batcher) Option {
	return func(c *config) {
		c.batcher = b
	}
}

// Dispatcher runs fn on the host's event loop. It returns false if fn was
// not accepted. component.Runtime.Dispatch is a Dispatcher.
type Dispatcher func(fn func()) bool

// WithDispatcher routes the result of hydration through d, so that values
// read from the adapter are applied and their subscribers notified on the
// host's event loop rather than on the hydration goroutine. Pass the same
// runtime given to WithBatcher. Default: run inline on the hydration
// goroutine.
//
// Work that d accepts must eventually run; Hydrated stays open until it
// does. Close the store before stopping the host loop.
func WithDispatcher(d Dispatcher) Option {
	return func(c *config) {
		c.dispatcher = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records store activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithErrorHandler receives every persistence error after it is logged.
// Write errors arrive on timer goroutines; read errors arrive on the
// hydration goroutine, or through the Dispatcher when one is set.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// WithDevtools registers the store in the devtools registry under its name
// until Close.
func WithDevtools() Option {
	return func(c *config) {
		c.devtools = true
	}
}
