// Package metrics provides the centralized Prometheus metrics registry for
// the clubsync client. All metrics are defined in their respective packages
// (cache, coordinator, syncqueue, client, prefetch) to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the clubsync client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - clubsync_cache_hits_total (Counter): Fresh cache entries served
//   - clubsync_cache_misses_total (Counter): Lookups that found no fresh entry
//   - clubsync_cache_entries (Gauge): Current number of cached entries
//   - clubsync_cache_stale_served_total (Counter): Expired entries served on refresh failure
//   - clubsync_not_modified_total (Counter): 304 Not Modified revalidations
//   - clubsync_conditional_requests_total (Counter): Requests sent with If-None-Match
//
// Coordinator Metrics (pkg/coordinator):
//   - clubsync_dedup_hits_total (Counter): Callers attached to an in-flight request
//   - clubsync_pending_requests (Gauge): Requests currently in flight
//
// Sync Queue Metrics (pkg/syncqueue):
//   - clubsync_sync_queue_depth (Gauge): Writes waiting for replay
//   - clubsync_sync_attempts_total (Counter): Drain passes started
//   - clubsync_replay_successes_total (Counter): Queued writes replayed successfully
//   - clubsync_replay_failures_total (Counter): Queued write attempts that failed
//
// Request Metrics (pkg/client):
//   - clubsync_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - clubsync_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - clubsync_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - clubsync_writes_queued_total{reason} (Counter): Writes captured into the sync queue
//
// Retry Metrics (pkg/client):
//   - clubsync_retries_total{error_class} (Counter): Retry attempts by error class
//   - clubsync_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - clubsync_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Prefetch Metrics (pkg/prefetch):
//   - clubsync_prefetch_warmed_total (Counter): Cache keys warmed successfully
//   - clubsync_prefetch_failed_total (Counter): Cache keys that failed to warm
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(clubsync_cache_hits_total[5m])) /
//   (sum(rate(clubsync_cache_hits_total[5m])) + sum(rate(clubsync_cache_misses_total[5m])))
//
//   # Sync Queue Backlog
//   clubsync_sync_queue_depth > 10
//
//   # Request Error Rate
//   rate(clubsync_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(clubsync_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(clubsync_not_modified_total[5m]) / rate(clubsync_requests_total[5m])
