// Package oteladapters implements the inventory observability interfaces on OpenTelemetry.
//
// SlogBridgeLogger and OTelLogger satisfy inventory.ContextualLogger, MetricsCollector satisfies
// inventory.ContextualMetricsCollector and TracingCollector satisfies inventory.TracingCollector.
// The booking engine, the postgres store and the scheduler accept all of them through their
// WithContextualLogger, WithMetrics and WithTracing options.
package oteladapters
