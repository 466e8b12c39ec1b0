package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found or is expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is malformed
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the in-memory cache entry store. Entries live for the process
// lifetime only; durability is reserved for revalidation tokens and the sync
// queue, which have their own stores.
//
// Expired entries are kept until evicted or replaced so that the coordinator
// can serve them as a stale-on-error fallback.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewStore creates an empty cache entry store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves a fresh cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or the entry is expired.
// Expired entries are not deleted; use GetStale to read them.
func (s *Store) Get(key Key) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	if entry.IsExpired() {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return entry, nil
}

// GetStale retrieves an entry regardless of expiry. The second return value
// reports whether an entry existed at all.
func (s *Store) GetStale(key Key) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key.String()]
	return entry, ok
}

// Set stores a cache entry, replacing any previous entry for the key.
func (s *Store) Set(key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.Expires.Before(entry.CreatedAt) {
		return fmt.Errorf("%w: expires %v before created %v",
			ErrInvalidEntry, entry.Expires, entry.CreatedAt)
	}

	s.mu.Lock()
	s.entries[key.String()] = entry
	s.mu.Unlock()

	CacheSize.Set(float64(s.Len()))
	return nil
}

// ExtendTTL moves an existing entry's expiry forward, keeping its data and
// token unchanged. Used after a confirmed "not modified" revalidation.
// Returns ErrCacheMiss if no entry exists for the key.
func (s *Store) ExtendTTL(key Key, newExpires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok {
		return ErrCacheMiss
	}
	entry.Expires = newExpires
	return nil
}

// Delete removes a cache entry.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	delete(s.entries, key.String())
	s.mu.Unlock()

	CacheSize.Set(float64(s.Len()))
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.mu.Unlock()

	CacheSize.Set(0)
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
