// Package client provides the clubsync HTTP API client. Reads go through the
// request coordinator (deduplication, TTL cache, ETag revalidation,
// stale-on-error); writes go straight to the backend when online and are
// captured into the durable sync queue when offline or transiently failing.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/connectivity"
	"github.com/clubworks/clubsync/pkg/coordinator"
	"github.com/clubworks/clubsync/pkg/kv"
	"github.com/clubworks/clubsync/pkg/ratelimit"
	"github.com/clubworks/clubsync/pkg/syncqueue"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubsync_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clubsync_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubsync_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})

	writesQueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubsync_writes_queued_total",
		Help: "Total writes captured into the sync queue by reason",
	}, []string{"reason"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the backend API (required), e.g. "https://api.clubworks.app"
	BaseURL string

	// UserAgent header (required)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// KV is the durable store for revalidation tokens and the sync queue.
	// A nil store keeps both in memory only.
	KV kv.Store

	// Monitor supplies the online/offline signal (required).
	Monitor connectivity.Monitor

	// CacheTTL is the default cache duration for reads.
	CacheTTL time.Duration

	// SyncMinInterval is the minimum spacing between manual syncs.
	SyncMinInterval time.Duration

	// Retry controls backoff for read requests.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string, store kv.Store, monitor connectivity.Monitor) Config {
	return Config{
		BaseURL:         baseURL,
		UserAgent:       userAgent,
		KV:              store,
		Monitor:         monitor,
		CacheTTL:        coordinator.DefaultTTL,
		SyncMinInterval: ratelimit.DefaultMinimumInterval,
		Retry:           DefaultRetryConfig(),
	}
}

// Client is the offline-first API client.
type Client struct {
	httpClient *http.Client
	coord      *coordinator.Coordinator
	queue      *syncqueue.Queue
	sync       *syncqueue.Manager
	monitor    connectivity.Monitor
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client and starts its sync manager.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Monitor == nil {
		return nil, fmt.Errorf("connectivity monitor is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = coordinator.DefaultTTL
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := log.With().Str("component", "api-client").Logger()
	ctx := context.Background()

	etags := coordinator.NewETagStore(ctx, cfg.KV, logger)
	coord := coordinator.New(coordinator.Config{
		ETags:  etags,
		Logger: logger,
	})
	queue := syncqueue.NewQueue(ctx, cfg.KV, logger)

	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		coord:   coord,
		queue:   queue,
		monitor: cfg.Monitor,
		config:  cfg,
		logger:  logger,
	}

	c.sync = syncqueue.NewManager(syncqueue.ManagerConfig{
		Queue:   queue,
		Monitor: cfg.Monitor,
		Replay:  c.replayItem,
		Limiter: ratelimit.NewLimiter(cfg.SyncMinInterval),
		Logger:  logger,
	})
	c.sync.Start()

	return c, nil
}

// Close stops the sync manager. An in-flight drain finishes its pass.
func (c *Client) Close() error {
	c.sync.Stop()
	return nil
}

// Get performs a conditional, cached GET for the given key and returns the
// raw payload.
func (c *Client) Get(ctx context.Context, key cache.Key, opts coordinator.Options) ([]byte, error) {
	if opts.TTL <= 0 {
		opts.TTL = c.config.CacheTTL
	}
	return c.coord.ExecuteWithRevalidation(ctx, key, func(ctx context.Context, token string) (*coordinator.FetchResult, error) {
		return c.fetch(ctx, key, token)
	}, opts)
}

// GetJSON performs Get and unmarshals the payload into v.
func (c *Client) GetJSON(ctx context.Context, key cache.Key, v interface{}, opts coordinator.Options) error {
	data, err := c.Get(ctx, key, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key.Endpoint, err)
	}
	return nil
}

// fetch performs one conditional GET with retry, speaking the coordinator's
// FetchResult contract.
func (c *Client) fetch(ctx context.Context, key cache.Key, token string) (*coordinator.FetchResult, error) {
	endpoint := key.Endpoint

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var result *coordinator.FetchResult

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(c.config.BaseURL, key), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		addConditionalHeader(req, token)
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			requestsTotal.WithLabelValues(endpoint, "304").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Str("etag", token).Msg("304 Not Modified")
			result = &coordinator.FetchResult{NotModified: true}
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		r, err := responseToResult(resp)
		if err != nil {
			return err
		}
		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Write applies a mutating operation against an entity. When the client is
// offline, or the immediate attempt fails with a retriable error, the
// operation is captured into the sync queue and the returned error wraps
// ErrQueued. Permanent (4xx) failures surface directly and are not queued.
func (c *Client) Write(ctx context.Context, entity string, op syncqueue.Operation, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", entity, err)
	}

	if !c.monitor.IsOnline() {
		return c.capture(ctx, entity, op, raw, "offline")
	}

	if err := c.send(ctx, entity, op, raw); err != nil {
		if shouldRetry(classify(err)) {
			c.logger.Warn().Err(err).Str("entity", entity).Msg("Write failed transiently, queueing")
			return c.capture(ctx, entity, op, raw, "transient_failure")
		}
		return err
	}

	c.invalidate(ctx, entity)
	return nil
}

// capture appends the write to the sync queue for later replay.
func (c *Client) capture(ctx context.Context, entity string, op syncqueue.Operation, raw json.RawMessage, reason string) error {
	id, err := c.queue.Enqueue(ctx, entity, op, raw)
	if err != nil {
		return err
	}
	writesQueuedTotal.WithLabelValues(reason).Inc()
	return fmt.Errorf("%w: %s %s (%s)", ErrQueued, op, entity, id)
}

// send performs the network operation for one write. Single attempt; retry
// across attempts is the sync queue's job.
func (c *Client) send(ctx context.Context, entity string, op syncqueue.Operation, payload json.RawMessage) error {
	method, path, body, err := writeRequest(entity, op, payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(path, "network_error").Inc()
		return err
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}
	return nil
}

// replayItem is the sync manager's replayer: one queued write, one attempt.
func (c *Client) replayItem(ctx context.Context, item syncqueue.Item) error {
	if err := c.send(ctx, item.Entity, item.Operation, item.Payload); err != nil {
		return err
	}
	c.invalidate(ctx, item.Entity)
	return nil
}

// invalidate evicts the entity's collection key so the next read refetches.
// Parameterized reads for the entity age out via their TTL instead.
func (c *Client) invalidate(ctx context.Context, entity string) {
	c.coord.Clear(ctx, cache.Key{Endpoint: entityPath(entity)})
}

// ForceSyncNow triggers a manual drain, gated by the rate limiter. A denied
// attempt returns the remaining wait and ErrRateLimited from the syncqueue
// package.
func (c *Client) ForceSyncNow(ctx context.Context) (time.Duration, error) {
	return c.sync.ForceSyncNow(ctx)
}

// SyncWaitMessage returns the user-facing rate limit message, empty when a
// manual sync is allowed now.
func (c *Client) SyncWaitMessage() string {
	return c.sync.WaitMessage()
}

// SyncStatus returns the aggregate sync queue state for the UI.
func (c *Client) SyncStatus() syncqueue.Status {
	return c.sync.Status()
}

// CacheStats returns the coordinator's store sizes for the UI.
func (c *Client) CacheStats() coordinator.Stats {
	return c.coord.Stats()
}

// ClearCache evicts the given keys, or everything when no key is given.
func (c *Client) ClearCache(ctx context.Context, keys ...cache.Key) {
	c.coord.Clear(ctx, keys...)
}

// CancelWrite removes a queued write that should not be replayed.
func (c *Client) CancelWrite(ctx context.Context, id string) bool {
	return c.queue.Cancel(ctx, id)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
