package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_cache_hits_total",
			Help: "Total number of fresh cache hits",
		},
	)

	// CacheMisses tracks cache misses (absent or expired entries)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheSize tracks the number of entries in the store
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubsync_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// StaleServed tracks stale entries served as a degraded-success fallback
	StaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_cache_stale_served_total",
			Help: "Total number of stale cache entries served after a failed refresh",
		},
	)

	// NotModifiedResponses tracks confirmed "not modified" revalidations
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_not_modified_total",
			Help: "Total number of not-modified revalidation responses",
		},
	)

	// ConditionalRequests tracks revalidating fetches sent with a stored token
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_conditional_requests_total",
			Help: "Total number of conditional requests sent with a revalidation token",
		},
	)
)
