// Package prometheus renders tokenvault counters in Prometheus text
// exposition format.
//
// The exporter is pull-based and allocation-light: [PrometheusExporter.Render]
// reads one engine snapshot and writes the exposition text, and
// [PrometheusExporter.Handler] wraps it for a /metrics endpoint.
//
// # What this package must NOT do
//
//   - Depend on the Prometheus client library. The counter-only exposition
//     format is stable and writing it directly keeps the dependency surface
//     flat.
//   - Mutate engine state.
package prometheus
