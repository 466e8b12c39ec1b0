package cache

import (
	"time"
)

// Entry represents a cached API response.
//
// Entries are replaced wholesale on every successful fetch. The only in-place
// mutation is extending Expires after a confirmed "not modified" revalidation.
type Entry struct {
	// Data is the response payload
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match), empty if the backend
	// did not supply one
	ETag string `json:"etag,omitempty"`

	// CreatedAt is when the entry was stored
	CreatedAt time.Time `json:"created_at"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
