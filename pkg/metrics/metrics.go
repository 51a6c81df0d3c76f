// Package metrics provides the gateway's Prometheus scrape handler.
// All metrics are defined in their respective packages (downstream,
// breaker, cache, push) to maintain modularity and avoid circular
// dependencies.
//
// This package also serves as the reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Downstream Request Metrics (pkg/downstream):
//   - gateway_downstream_requests_total{target, status} (Counter): Requests by target and HTTP status
//   - gateway_downstream_request_duration_seconds{target} (Histogram): Request duration by target
//   - gateway_downstream_faults_total{target, class} (Counter): Faults by target and class
//
// Retry Metrics (pkg/downstream):
//   - gateway_downstream_retries_total{target, class} (Counter): Retry attempts by fault class
//   - gateway_downstream_retry_backoff_seconds{target} (Histogram): Backoff durations
//   - gateway_downstream_retry_exhausted_total{target} (Counter): Calls that exhausted the retry budget
//
// Circuit Breaker Metrics (pkg/breaker):
//   - gateway_breaker_state{target} (Gauge): Current state (0=closed, 1=open, 2=half-open)
//   - gateway_breaker_transitions_total{target, state} (Counter): State transitions
//   - gateway_breaker_rejections_total{target} (Counter): Calls rejected while open
//
// Cache Metrics (pkg/cache):
//   - gateway_cache_hits_total (Counter): Cache hits
//   - gateway_cache_misses_total (Counter): Cache misses
//   - gateway_cache_evictions_total{reason} (Counter): Evictions by reason (expired, invalidated)
//   - gateway_cache_entries (Gauge): Current number of entries
//   - gateway_cache_generation_bumps_total{collection} (Counter): Collection generation bumps
//
// Push Metrics (pkg/push):
//   - gateway_push_connections (Gauge): Live push channels
//   - gateway_push_users (Gauge): Users with at least one live channel
//   - gateway_push_deliveries_total{status} (Counter): Deliveries by outcome (delivered, failed, no_channel)
//   - gateway_push_dispatch_duration_seconds (Histogram): Fan-out duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(gateway_cache_hits_total[5m])) /
//   (sum(rate(gateway_cache_hits_total[5m])) + sum(rate(gateway_cache_misses_total[5m])))
//
//   # Open Breakers
//   gateway_breaker_state == 1
//
//   # Downstream Fault Rate by Class
//   rate(gateway_downstream_faults_total[5m])
//
//   # P95 Downstream Latency
//   histogram_quantile(0.95, rate(gateway_downstream_request_duration_seconds_bucket[5m]))
//
//   # Push Delivery Failure Rate
//   rate(gateway_push_deliveries_total{status="failed"}[5m])
