package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DedupHits tracks callers that joined an in-flight request instead of
	// issuing their own network call
	DedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_dedup_hits_total",
			Help: "Total number of requests deduplicated against an in-flight call",
		},
	)

	// PendingRequests tracks currently registered in-flight calls
	PendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubsync_pending_requests",
			Help: "Current number of in-flight deduplicated requests",
		},
	)
)
