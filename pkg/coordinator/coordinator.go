// Package coordinator implements the request coordination layer: given a
// cache key and a supplier of a fresh value, it answers "execute or reuse"
// while deduplicating concurrent identical requests, honoring a TTL, and
// supporting conditional (ETag) revalidation with stale-on-error fallback.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubworks/clubsync/pkg/cache"
)

const (
	// DefaultTTL is the cache duration applied when options carry none.
	DefaultTTL = 5 * time.Minute

	// DefaultDedupWindow is the span during which concurrent identical
	// requests are collapsed into one in-flight call.
	DefaultDedupWindow = 2 * time.Second
)

// ErrNotModifiedWithoutEntry is returned when a supplier reports "not
// modified" even though no cached entry exists and no token was sent.
var ErrNotModifiedWithoutEntry = errors.New("not modified response without cached entry")

// Supplier produces a fresh payload, typically by one network call.
type Supplier func(ctx context.Context) ([]byte, error)

// RevalidatingSupplier produces a fresh payload or a "not modified" signal.
// It receives the previously stored revalidation token (empty if none) and
// should send it as If-None-Match or the backend's equivalent.
type RevalidatingSupplier func(ctx context.Context, token string) (*FetchResult, error)

// FetchResult is what a revalidating supplier returns.
type FetchResult struct {
	// Data is the fresh payload. Ignored when NotModified is set.
	Data []byte

	// ETag is the new revalidation token, empty if the backend sent none.
	ETag string

	// NotModified reports that the cached data is still current.
	NotModified bool
}

// Options control a single execute call.
type Options struct {
	// TTL is the cache duration for a fresh result (default DefaultTTL).
	TTL time.Duration

	// ForceRefresh bypasses both the pending-call join and the fresh-cache
	// check, always invoking the supplier.
	ForceRefresh bool
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

// Stats is the UI-facing snapshot of the coordinator's stores.
type Stats struct {
	CacheSize       int `json:"cache_size"`
	PendingRequests int `json:"pending_requests"`
	ETagCount       int `json:"etag_count"`
}

// Coordinator orchestrates the cache entry store, the pending request
// tracker, and the revalidation token store. All mutation of those stores is
// mediated here.
type Coordinator struct {
	cache       *cache.Store
	pending     *pendingTracker
	etags       *ETagStore
	dedupWindow time.Duration
	logger      zerolog.Logger

	// now is swappable for tests
	now func() time.Time
}

// Config holds the coordinator configuration.
type Config struct {
	// Cache is the entry store. A nil value gets a fresh in-memory store.
	Cache *cache.Store

	// ETags is the persisted token store (required).
	ETags *ETagStore

	// DedupWindow overrides DefaultDedupWindow when positive.
	DedupWindow time.Duration

	Logger zerolog.Logger
}

// New creates a request coordinator.
func New(cfg Config) *Coordinator {
	if cfg.ETags == nil {
		panic("etag store cannot be nil")
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewStore()
	}
	window := cfg.DedupWindow
	if window <= 0 {
		window = DefaultDedupWindow
	}

	now := time.Now
	return &Coordinator{
		cache:       cfg.Cache,
		pending:     newPendingTracker(now),
		etags:       cfg.ETags,
		dedupWindow: window,
		logger:      cfg.Logger,
		now:         now,
	}
}

// Execute returns a value for key, reusing a fresh cache entry or an
// in-flight call where possible and invoking supplier otherwise.
//
// On supplier failure the error propagates to every attached caller and any
// existing cache entry is left untouched.
func (c *Coordinator) Execute(ctx context.Context, key cache.Key, supplier Supplier, opts Options) ([]byte, error) {
	keyStr := key.String()

	if !opts.ForceRefresh {
		if call, ok := c.pending.join(keyStr, c.dedupWindow); ok {
			DedupHits.Inc()
			c.logger.Debug().Str("key", keyStr).Msg("Joining in-flight request")
			return call.wait(ctx)
		}
		if entry, err := c.cache.Get(key); err == nil {
			return entry.Data, nil
		}
	}

	// Register before the call settles so concurrent callers arriving during
	// the fetch dedupe against it. acquire may still join a call registered
	// between the checks above and this point.
	call, joined := c.pending.acquire(keyStr, c.dedupWindow, opts.ForceRefresh)
	if joined {
		DedupHits.Inc()
		return call.wait(ctx)
	}
	PendingRequests.Set(float64(c.pending.len()))

	data, err := supplier(ctx)
	if err != nil {
		c.pending.remove(keyStr, call)
		PendingRequests.Set(float64(c.pending.len()))
		call.settle(nil, err)
		return nil, err
	}

	now := c.now()
	entry := &cache.Entry{
		Data:      data,
		CreatedAt: now,
		Expires:   now.Add(opts.ttl()),
	}
	if err := c.cache.Set(key, entry); err != nil {
		c.logger.Warn().Err(err).Str("key", keyStr).Msg("Failed to cache response")
	}

	c.pending.remove(keyStr, call)
	PendingRequests.Set(float64(c.pending.len()))
	call.settle(data, nil)
	return data, nil
}

// ExecuteWithRevalidation is the conditional variant of Execute. The supplier
// receives the stored revalidation token and may answer "not modified", in
// which case the cached entry's expiry is extended and its data returned
// unchanged.
//
// On supplier failure an existing entry, even an expired one, is served as a
// degraded-success fallback and the error is suppressed; without one the
// error propagates.
func (c *Coordinator) ExecuteWithRevalidation(ctx context.Context, key cache.Key, supplier RevalidatingSupplier, opts Options) ([]byte, error) {
	keyStr := key.String()

	if !opts.ForceRefresh {
		if call, ok := c.pending.join(keyStr, c.dedupWindow); ok {
			DedupHits.Inc()
			c.logger.Debug().Str("key", keyStr).Msg("Joining in-flight request")
			return call.wait(ctx)
		}
		if entry, err := c.cache.Get(key); err == nil {
			return entry.Data, nil
		}
	}

	call, joined := c.pending.acquire(keyStr, c.dedupWindow, opts.ForceRefresh)
	if joined {
		DedupHits.Inc()
		return call.wait(ctx)
	}
	PendingRequests.Set(float64(c.pending.len()))

	token, _ := c.etags.Get(key)
	if token != "" {
		cache.ConditionalRequests.Inc()
	}

	defer func() {
		c.pending.remove(keyStr, call)
		PendingRequests.Set(float64(c.pending.len()))
	}()

	result, err := supplier(ctx, token)
	if err != nil {
		if stale, ok := c.cache.GetStale(key); ok {
			cache.StaleServed.Inc()
			c.logger.Warn().Err(err).Str("key", keyStr).Msg("Refresh failed, serving stale data")
			call.settle(stale.Data, nil)
			return stale.Data, nil
		}
		call.settle(nil, err)
		return nil, err
	}

	now := c.now()

	if result.NotModified {
		if entry, ok := c.cache.GetStale(key); ok {
			cache.NotModifiedResponses.Inc()
			if err := c.cache.ExtendTTL(key, now.Add(opts.ttl())); err != nil {
				c.logger.Warn().Err(err).Str("key", keyStr).Msg("Failed to extend cache TTL")
			}
			c.logger.Debug().Str("key", keyStr).Str("etag", token).Msg("Not modified, cache TTL extended")
			call.settle(entry.Data, nil)
			return entry.Data, nil
		}

		// The token outlived its entry (tokens persist across restarts,
		// entries do not). Drop it and refetch unconditionally.
		c.etags.Delete(ctx, key)
		result, err = supplier(ctx, "")
		if err != nil {
			call.settle(nil, err)
			return nil, err
		}
		if result.NotModified {
			call.settle(nil, ErrNotModifiedWithoutEntry)
			return nil, ErrNotModifiedWithoutEntry
		}
		now = c.now()
	}

	entry := &cache.Entry{
		Data:      result.Data,
		ETag:      result.ETag,
		CreatedAt: now,
		Expires:   now.Add(opts.ttl()),
	}
	if err := c.cache.Set(key, entry); err != nil {
		c.logger.Warn().Err(err).Str("key", keyStr).Msg("Failed to cache response")
	}
	if result.ETag != "" {
		c.etags.Set(ctx, key, result.ETag)
	} else {
		c.etags.Delete(ctx, key)
	}

	call.settle(result.Data, nil)
	return result.Data, nil
}

// Clear evicts the given keys' entries, pending registrations, and tokens.
// With no keys it empties all three stores.
func (c *Coordinator) Clear(ctx context.Context, keys ...cache.Key) {
	if len(keys) == 0 {
		c.cache.Clear()
		c.pending.clear()
		c.etags.Clear(ctx)
		PendingRequests.Set(0)
		return
	}

	for _, key := range keys {
		c.cache.Delete(key)
		c.pending.removeKey(key.String())
		c.etags.Delete(ctx, key)
	}
	PendingRequests.Set(float64(c.pending.len()))
}

// Stats returns the UI-facing snapshot of the coordinator's stores.
func (c *Coordinator) Stats() Stats {
	return Stats{
		CacheSize:       c.cache.Len(),
		PendingRequests: c.pending.len(),
		ETagCount:       c.etags.Len(),
	}
}
