// Package metric holds the Prometheus plumbing for the tracker client.
//
// A MetricsRegistry wraps a private prometheus.Registry. It comes with the core
// collectors in Metrics (stream frames, readiness, reconnects, bridge
// publishes) plus the Go runtime and process collectors. Components add their
// own collectors through the MetricsRegistrar methods; registrations are keyed
// by component and metric name so a second registration under the same key
// fails with an invalid-class error instead of panicking.
//
// Server exposes the registry over HTTP:
//
//	registry := metric.NewMetricsRegistry()
//	srv := metric.NewServer(9090, "/metrics", registry)
//	srv.Handle("/health", healthHandler)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package metric
