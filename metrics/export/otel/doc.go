// Package otel publishes authflow telemetry through OpenTelemetry metrics.
//
// [NewOTelExporter] registers an Int64ObservableCounter per flow counter and
// an Int64ObservableGauge per latency bucket. A single callback reads
// [authflow.Telemetry.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate controller state.
package otel
