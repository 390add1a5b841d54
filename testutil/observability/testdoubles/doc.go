// Package testdoubles provides spies for the observability and collaborator interfaces of the
// reservation engine:
//   - MetricsCollectorSpy: captures duration and counter calls
//   - TracingCollectorSpy: captures started and finished spans
//   - ContextualLoggerSpy: captures context-aware log calls per level
//   - NotifierSpy, InvoicerSpy: capture collaborator calls and can be told to fail
//
// They let tests verify instrumentation and best-effort collaborator handling without a telemetry backend.
package testdoubles
