// Package metrics exposes soapd's Prometheus metrics.
//
// A Collector owns every metric and is built against a prometheus.Registerer,
// so tests can use a private registry:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewWithRegistry(reg)
//	engine := soap.NewEngine(soap.Options{Observer: m})
//	http.Handle("/metrics", metrics.Handler(reg))
//
// # Metrics
//
//   - soapd_requests_total: HTTP requests (labels: method, route, status)
//   - soapd_request_duration_seconds: HTTP latency (labels: method, route)
//   - soapd_requests_in_flight: requests being served
//   - soapd_calls_total: dispatched invocations (labels: operation, outcome)
//   - soapd_call_duration_seconds: handler latency (labels: operation)
//   - soapd_malformed_envelopes_total: rejected envelopes
//   - soapd_operations: registered operations
//   - soapd_config_reloads_total / soapd_config_reload_errors_total
//
// # Label Conventions
//
// All label values are lowercase except HTTP methods and operation names,
// which keep their wire spelling. The outcome label is one of ok, client,
// server, versionmismatch or mustunderstand.
package metrics
