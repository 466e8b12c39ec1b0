// Package cache provides the in-memory response cache for the clubsync
// request coordinator.
//
// The store maps deterministic request keys to cached payloads with a
// validity window and an optional revalidation token (ETag):
//
//   - Deterministic cache key generation from endpoint + parameters
//   - TTL management with wholesale entry replacement on refresh
//   - Expired entries retained for stale-on-error fallback
//   - Prometheus metrics for observability
//
// # Basic Usage
//
//	store := cache.NewStore()
//
//	key := cache.Key{
//		Endpoint:    "/v1/clubs/17/bookings/",
//		QueryParams: url.Values{"status": []string{"confirmed"}},
//	}
//
//	entry, err := store.Get(key)
//	if err == cache.ErrCacheMiss {
//		// Miss or expired - fetch from the backend
//	}
//
// # Stale Fallback
//
//	// After a failed refresh, an expired entry can still be served:
//	if entry, ok := store.GetStale(key); ok {
//		return entry.Data
//	}
//
// # Metrics
//
//   - clubsync_cache_hits_total - Fresh cache hits
//   - clubsync_cache_misses_total - Cache misses
//   - clubsync_cache_entries - Current entry count
//   - clubsync_cache_stale_served_total - Stale fallback serves
//   - clubsync_not_modified_total - Confirmed revalidations
//
// Request orchestration (deduplication, revalidation, eviction) lives in the
// coordinator package; this package only owns entry storage.
package cache
