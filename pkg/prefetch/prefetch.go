// Package prefetch warms the response cache ahead of navigation using a
// bounded worker pool.
package prefetch

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/clubworks/clubsync/pkg/cache"
)

// Prometheus metrics for prefetch operations.
var (
	warmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubsync_prefetch_warmed_total",
		Help: "Total cache keys successfully warmed",
	})

	failedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clubsync_prefetch_failed_total",
		Help: "Total cache keys that failed to warm",
	})
)

// Fetcher resolves one key, typically through the client's cached read path.
type Fetcher interface {
	Fetch(ctx context.Context, key cache.Key) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key cache.Key) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, key cache.Key) ([]byte, error) {
	return f(ctx, key)
}

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel fetches.
	// Mobile backends tolerate little burst; keep this small.
	MaxConcurrency int

	// Timeout per key fetch.
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// Result reports the outcome of one warming pass.
type Result struct {
	// Warmed is the number of keys fetched successfully.
	Warmed int

	// Failed is the number of keys whose fetch errored.
	Failed int

	// Errors maps failed key strings to their errors.
	Errors map[string]error
}

// Warmer fetches a set of cache keys in parallel so subsequent reads are
// served from cache. Failures are per key; one bad endpoint never aborts
// the pass.
type Warmer struct {
	fetcher Fetcher
	config  Config
}

// NewWarmer creates a cache warmer.
func NewWarmer(fetcher Fetcher, config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Warmer{
		fetcher: fetcher,
		config:  config,
	}
}

type keyResult struct {
	key string
	err error
}

// Warm fetches all keys through the worker pool and reports per-key outcomes.
// A cancelled context stops dispatching; keys already in flight finish.
func (w *Warmer) Warm(ctx context.Context, keys []cache.Key) Result {
	start := time.Now()

	keyQueue := make(chan cache.Key, len(keys))
	results := make(chan keyResult, len(keys))

	for _, key := range keys {
		keyQueue <- key
	}
	close(keyQueue)

	var wg sync.WaitGroup
	workers := w.config.MaxConcurrency
	if workers > len(keys) {
		workers = len(keys)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go w.worker(ctx, keyQueue, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	result := Result{Errors: make(map[string]error)}
	for r := range results {
		if r.err != nil {
			result.Failed++
			failedTotal.Inc()
			result.Errors[r.key] = r.err
			continue
		}
		result.Warmed++
		warmedTotal.Inc()
	}

	log.Info().
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Cache warming pass complete")

	return result
}

// worker processes keys from the queue.
func (w *Warmer) worker(ctx context.Context, keyQueue <-chan cache.Key, results chan<- keyResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for key := range keyQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		keyCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		_, err := w.fetcher.Fetch(keyCtx, key)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Str("key", key.String()).
				Msg("Prefetch failed")
		}
		results <- keyResult{key: key.String(), err: err}
	}
}
