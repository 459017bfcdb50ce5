// Package metrics provides job observability for texsync.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks:
//
//	runner := job.NewRunner(deps) // records into metrics.NoopRecorder{}
//
// When the daemon exposes a metrics endpoint it swaps in a PrometheusRecorder
// registered on the same registry that HTTPHandler serves:
//
//	reg := metrics.NewRegistry()
//	recorder := metrics.NewPrometheusRecorder(reg)
//	mux.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
