package syncqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of pending offline writes
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clubsync_sync_queue_depth",
			Help: "Current number of pending offline write operations",
		},
	)

	// SyncAttempts tracks drain passes
	SyncAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_sync_attempts_total",
			Help: "Total number of sync queue drain passes",
		},
	)

	// ReplaySuccesses tracks items removed after successful replay
	ReplaySuccesses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_replay_successes_total",
			Help: "Total number of queued writes replayed successfully",
		},
	)

	// ReplayFailures tracks failed replay attempts (item stays queued)
	ReplayFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubsync_replay_failures_total",
			Help: "Total number of failed replay attempts",
		},
	)
)
