package postgresengine

import (
	"github.com/shelfwise/inventory-coordinator-go/inventory"
)

// Logger is the logging port accepted by WithLogger.
type Logger = inventory.Logger

// MetricsCollector is the metrics port accepted by WithMetrics.
type MetricsCollector = inventory.MetricsCollector

// TracingCollector is the tracing port accepted by WithTracing.
type TracingCollector = inventory.TracingCollector

// ContextualLogger is the context-aware logging port accepted by WithContextualLogger.
type ContextualLogger = inventory.ContextualLogger

// Option defines a functional option for configuring a Coordinator.
type Option func(*Coordinator) error

// WithTablePrefix sets the prefix for the items, rentals, reservations and
// bookings table names, e.g. "lending_" for lending_items and so on.
func WithTablePrefix(prefix string) Option {
	return func(c *Coordinator) error {
		if prefix == "" {
			return inventory.ErrEmptyTablePrefix
		}

		c.tablePrefix = prefix

		return nil
	}
}

// WithLogger sets the logger for the Coordinator.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: operation outcomes, durations, availability conflicts, release skips (production-safe)
// Warn level: non-critical issues like rollback failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(c *Coordinator) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Coordinator.
// The collector will receive operation durations, availability-conflict
// counters, release-skip counters, and database error counters.
func WithMetrics(collector MetricsCollector) Option {
	return func(c *Coordinator) error {
		c.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Coordinator.
// The collector will receive span creation for every coordinator operation,
// context propagation, and error tracking.
func WithTracing(collector TracingCollector) Option {
	return func(c *Coordinator) error {
		c.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Coordinator.
// The contextual logger will receive log messages with context information
// including automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(c *Coordinator) error {
		c.contextualLogger = logger
		return nil
	}
}

// WithHooks sets the hook registry whose typed before-commit and
// after-commit callbacks the Coordinator dispatches around every obligation
// mutation.
func WithHooks(registry *inventory.HookRegistry) Option {
	return func(c *Coordinator) error {
		c.hooks = registry
		return nil
	}
}
