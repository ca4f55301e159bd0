// Package metrics provides Prometheus instrumentation for gatekeep limiters
// and counter stores.
//
// # Quick Start
//
// Wrap any limiter with the metrics decorator and expose the default registry:
//
//	limiter := ratelimit.WithMetrics(tb, "token_bucket", "api", nil)
//	http.Handle("/metrics", promhttp.Handler())
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//	limiter := ratelimit.WithMetrics(tb, "token_bucket", "api", m)
//
// # Available Metrics
//
//	gatekeep_ratelimit_requests_total{limiter_type, limiter_name}
//	gatekeep_ratelimit_allowed_total{limiter_type, limiter_name}
//	gatekeep_ratelimit_denied_total{limiter_type, limiter_name}
//	gatekeep_ratelimit_fail_open_total{limiter_name}
//	gatekeep_store_errors_total{store}
//	gatekeep_store_latency_seconds{store}
package metrics
