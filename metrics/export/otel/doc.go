// Package otel provides OpenTelemetry metric exporter bindings for
// tokenvault counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter per tokenvault
// metric. A single callback reads [tokenvault.Engine.MetricsSnapshot] on
// each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
