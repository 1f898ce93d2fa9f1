// Package prometheus renders authflow telemetry in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads an [authflow.Telemetry] and exposes an
// [http.Handler]. [NewCollector] offers the same series as a client_golang
// Collector for applications that already run a prometheus.Registry.
// Counter names are authflow_*_total; the single histogram is
// authflow_remote_call_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global default registry. Callers register the
//     Collector or mount the Handler themselves.
//   - Mutate controller state.
package prometheus
