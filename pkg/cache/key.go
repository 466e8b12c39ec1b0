package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached API response.
type Key struct {
	// Endpoint is the API endpoint path (e.g., "/v1/clubs/{club_id}/bookings/")
	Endpoint string

	// PathParams are the path parameters (e.g., {"club_id": "17"})
	PathParams map[string]string

	// QueryParams are the query parameters (e.g., {"status": "confirmed"})
	QueryParams url.Values

	// UserID is the authenticated user for member-scoped endpoints (0 for public)
	UserID int64
}

// String generates a deterministic cache key string. Two keys with the same
// endpoint and semantically equal parameter sets produce identical strings.
// Format: api:endpoint:param1=val1:query1=val1:user=123
//
// Example:
//   api:v1/clubs/17/bookings:status=confirmed:user=42
func (k Key) String() string {
	parts := []string{"api"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Path params sorted for determinism
	if len(k.PathParams) > 0 {
		pathKeys := make([]string, 0, len(k.PathParams))
		for key := range k.PathParams {
			pathKeys = append(pathKeys, key)
		}
		sort.Strings(pathKeys)

		for _, key := range pathKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.PathParams[key]))
		}
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	if k.UserID > 0 {
		parts = append(parts, fmt.Sprintf("user=%d", k.UserID))
	}

	return strings.Join(parts, ":")
}
