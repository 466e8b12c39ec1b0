// clubsync-agent runs the sync client as a local sidecar: it keeps the cache
// warm, drains the offline queue, and exposes status endpoints for the app
// shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/client"
	"github.com/clubworks/clubsync/pkg/connectivity"
	"github.com/clubworks/clubsync/pkg/coordinator"
	"github.com/clubworks/clubsync/pkg/kv"
	"github.com/clubworks/clubsync/pkg/logging"
	"github.com/clubworks/clubsync/pkg/prefetch"
	"github.com/clubworks/clubsync/pkg/syncqueue"
)

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") != "",
	})

	baseURL := getEnv("API_BASE_URL", "https://api.clubworks.app")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "clubsync-agent/0.1.0")

	ctx := context.Background()

	// Durable store for the sync queue and revalidation tokens. Without
	// Redis the agent still works, it just forgets queued writes on exit.
	var store kv.Store
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", redisURL).Msg("Redis unavailable, falling back to in-memory storage")
		store = kv.NewMemoryStore()
	} else {
		log.Info().Str("addr", redisURL).Msg("Connected to Redis")
		store = kv.NewRedisStore(redisClient)
	}

	probeLogger := log.With().Str("component", "connectivity").Logger()
	monitor := connectivity.NewProbe(baseURL+"/health", 30*time.Second, probeLogger)
	monitor.Start()
	defer monitor.Stop()

	syncClient, err := client.New(client.DefaultConfig(baseURL, userAgent, store, monitor))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sync client")
	}
	defer syncClient.Close()

	// Warm the configured endpoints so the first screens render from cache.
	if endpoints := getEnv("PREFETCH_ENDPOINTS", ""); endpoints != "" {
		go warmCache(ctx, syncClient, strings.Split(endpoints, ","))
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/stats", statsHandler(syncClient, monitor))
	http.HandleFunc("/sync", syncHandler(syncClient))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	log.Info().Str("addr", addr).Str("backend", baseURL).Msg("Starting clubsync agent")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// warmCache prefetches the given endpoint paths through the client's cached
// read path.
func warmCache(ctx context.Context, c *client.Client, endpoints []string) {
	keys := make([]cache.Key, 0, len(endpoints))
	for _, endpoint := range endpoints {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		keys = append(keys, cache.Key{Endpoint: endpoint})
	}

	warmer := prefetch.NewWarmer(prefetch.FetcherFunc(func(ctx context.Context, key cache.Key) ([]byte, error) {
		return c.Get(ctx, key, coordinator.Options{})
	}), prefetch.DefaultConfig())

	result := warmer.Warm(ctx, keys)
	log.Info().Int("warmed", result.Warmed).Int("failed", result.Failed).Msg("Startup prefetch complete")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// statsHandler reports cache and sync queue state for the app shell's
// settings screen.
func statsHandler(c *client.Client, monitor connectivity.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := struct {
			Online bool              `json:"online"`
			Cache  coordinator.Stats `json:"cache"`
			Sync   syncqueue.Status  `json:"sync"`
		}{
			Online: monitor.IsOnline(),
			Cache:  c.CacheStats(),
			Sync:   c.SyncStatus(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Error().Err(err).Msg("Failed to encode stats")
		}
	}
}

// syncHandler triggers a manual drain. Denied attempts report the remaining
// wait so the UI can display it.
func syncHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		wait, err := c.ForceSyncNow(ctx)
		switch {
		case errors.Is(err, syncqueue.ErrRateLimited):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":        "rate_limited",
				"retry_after":  int(wait.Seconds()),
				"wait_message": c.SyncWaitMessage(),
			})
		case errors.Is(err, syncqueue.ErrOffline):
			http.Error(w, "offline", http.StatusServiceUnavailable)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(c.SyncStatus())
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
