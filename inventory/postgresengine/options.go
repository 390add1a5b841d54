package postgresengine

import (
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithMovementTableName sets the table name of the stock ledger.
func WithMovementTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return inventory.ErrEmptyTableNameSupplied
		}

		s.tables.movements = tableName

		return nil
	}
}

// WithOutboxTableName sets the table name of the notification outbox.
func WithOutboxTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return inventory.ErrEmptyTableNameSupplied
		}

		s.tables.outbox = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: transaction outcomes and concurrency conflicts (production-safe)
// Warn level: Non-critical issues like rollback failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger inventory.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It takes precedence over WithLogger and receives the context of the transaction for trace correlation.
func WithContextualLogger(logger inventory.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
func WithMetrics(collector inventory.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
func WithTracing(collector inventory.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}
