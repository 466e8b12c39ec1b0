// Package syncqueue implements the offline write buffer: a durable FIFO
// queue of create/update/delete operations recorded while the backend is
// unreachable, and a manager that replays them in order when connectivity
// returns.
package syncqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubworks/clubsync/pkg/connectivity"
	"github.com/clubworks/clubsync/pkg/ratelimit"
)

var (
	// ErrOffline is returned when a drain is requested without connectivity.
	ErrOffline = errors.New("sync: offline")

	// ErrRateLimited is returned when the minimum sync interval has not
	// elapsed. The remaining wait is available from the manager's limiter.
	ErrRateLimited = errors.New("sync: rate limited")

	// ErrSyncInProgress is returned when a drain is already running.
	ErrSyncInProgress = errors.New("sync: drain already in progress")
)

// Replayer performs the network operation for one queued item.
type Replayer func(ctx context.Context, item Item) error

// Status is the aggregate queue state surfaced to the UI layer.
type Status struct {
	IsSyncing    bool      `json:"is_syncing"`
	QueueLength  int       `json:"queue_length"`
	Errors       []string  `json:"errors"`
	LastSyncTime time.Time `json:"last_sync_time"`
}

// Manager drains the queue against the network. It subscribes to the
// connectivity monitor and automatically drains on reconnect; manual drains
// go through the rate limiter.
type Manager struct {
	queue   *Queue
	monitor connectivity.Monitor
	limiter *ratelimit.Limiter
	replay  Replayer
	logger  zerolog.Logger

	mu          sync.Mutex
	syncing     bool
	lastSync    time.Time
	unsubscribe func()
}

// ManagerConfig holds the sync manager configuration.
type ManagerConfig struct {
	Queue   *Queue
	Monitor connectivity.Monitor
	Replay  Replayer

	// Limiter gates manual syncs. A nil value gets a limiter with the
	// default minimum interval.
	Limiter *ratelimit.Limiter

	Logger zerolog.Logger
}

// NewManager creates a sync manager. Call Start to enable automatic drains
// on reconnect.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Queue == nil {
		panic("queue cannot be nil")
	}
	if cfg.Monitor == nil {
		panic("connectivity monitor cannot be nil")
	}
	if cfg.Replay == nil {
		panic("replayer cannot be nil")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewLimiter(0)
	}

	return &Manager{
		queue:   cfg.Queue,
		monitor: cfg.Monitor,
		limiter: cfg.Limiter,
		replay:  cfg.Replay,
		logger:  cfg.Logger,
	}
}

// Start subscribes to connectivity transitions. A transition to online
// triggers a background drain (not rate limited; the limiter only guards
// manual triggers).
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}

	m.unsubscribe = m.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		m.logger.Info().Int("queue_length", m.queue.Len()).Msg("Back online, draining sync queue")
		go func() {
			if err := m.Drain(context.Background()); err != nil && err != ErrSyncInProgress {
				m.logger.Warn().Err(err).Msg("Reconnect drain failed")
			}
		}()
	})
}

// Stop removes the connectivity subscription. An in-flight drain finishes
// its current pass.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Drain replays every queued item once, in FIFO enqueue order. A failing
// item is left queued with its retry count incremented and the pass moves on
// to subsequent items; later items may be independent of the failed one.
//
// The drain is interruptible between items via ctx, never mid-item.
func (m *Manager) Drain(ctx context.Context) error {
	if !m.monitor.IsOnline() {
		return ErrOffline
	}

	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return ErrSyncInProgress
	}
	m.syncing = true
	m.mu.Unlock()

	m.limiter.RecordAttempt()
	SyncAttempts.Inc()
	start := time.Now()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.lastSync = time.Now()
		m.mu.Unlock()
	}()

	items := m.queue.Items()
	replayed, failed := 0, 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			m.logger.Warn().
				Int("replayed", replayed).
				Int("remaining", m.queue.Len()).
				Msg("Drain interrupted")
			return ctx.Err()
		default:
		}

		if err := m.replay(ctx, item); err != nil {
			m.queue.Fail(ctx, item.ID, err)
			ReplayFailures.Inc()
			failed++
			continue
		}

		m.queue.Remove(ctx, item.ID)
		ReplaySuccesses.Inc()
		replayed++
	}

	m.logger.Info().
		Int("replayed", replayed).
		Int("failed", failed).
		Int("remaining", m.queue.Len()).
		Dur("duration", time.Since(start)).
		Msg("Sync queue drained")

	return nil
}

// ForceSyncNow is the manual trigger behind the UI's sync button. It is
// gated by the rate limiter: a denied attempt returns ErrRateLimited and the
// remaining wait, so the caller can show a "try again in Xs" message.
func (m *Manager) ForceSyncNow(ctx context.Context) (time.Duration, error) {
	if !m.limiter.CanSync() {
		wait := m.limiter.RemainingWait()
		m.logger.Debug().Dur("remaining_wait", wait).Msg("Manual sync rate limited")
		return wait, ErrRateLimited
	}
	return 0, m.Drain(ctx)
}

// WaitMessage returns the user-facing rate limit message, empty when a
// manual sync is allowed now.
func (m *Manager) WaitMessage() string {
	return m.limiter.WaitMessage()
}

// Status returns the aggregate queue state for the UI's status banner.
func (m *Manager) Status() Status {
	m.mu.Lock()
	syncing := m.syncing
	lastSync := m.lastSync
	m.mu.Unlock()

	items := m.queue.Items()
	var errs []string
	for _, item := range items {
		if item.LastError != "" {
			errs = append(errs, item.LastError)
		}
	}

	return Status{
		IsSyncing:    syncing,
		QueueLength:  len(items),
		Errors:       errs,
		LastSyncTime: lastSync,
	}
}
