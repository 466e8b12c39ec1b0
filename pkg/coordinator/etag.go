package coordinator

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/kv"
)

// DefaultETagStorageKey is the kv key under which the token map snapshot is
// persisted.
const DefaultETagStorageKey = "clubsync:etags"

// ETagStore maps cache keys to revalidation tokens. The map is persisted as a
// JSON snapshot through a kv.Store and reloaded wholesale at construction, so
// conditional requests stay effective across process restarts.
//
// Persistence is best-effort by policy: write failures are logged and
// swallowed, and the in-memory map stays authoritative for the session.
type ETagStore struct {
	mu     sync.RWMutex
	tokens map[string]string

	store      kv.Store
	storageKey string
	logger     zerolog.Logger
}

// NewETagStore creates a token store backed by the given kv.Store and loads
// the persisted snapshot. A nil store yields a purely in-memory token map.
func NewETagStore(ctx context.Context, store kv.Store, logger zerolog.Logger) *ETagStore {
	s := &ETagStore{
		tokens:     make(map[string]string),
		store:      store,
		storageKey: DefaultETagStorageKey,
		logger:     logger,
	}
	s.load(ctx)
	return s
}

func (s *ETagStore) load(ctx context.Context) {
	if s.store == nil {
		return
	}

	raw, err := s.store.Get(ctx, s.storageKey)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn().Err(err).Msg("Failed to load revalidation tokens")
		}
		return
	}

	var tokens map[string]string
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		s.logger.Warn().Err(err).Msg("Corrupt revalidation token snapshot, starting empty")
		return
	}
	s.tokens = tokens

	s.logger.Debug().Int("count", len(tokens)).Msg("Loaded revalidation tokens")
}

// persist writes the current token map snapshot. Best-effort.
func (s *ETagStore) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	s.mu.RLock()
	raw, err := json.Marshal(s.tokens)
	s.mu.RUnlock()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to marshal revalidation tokens")
		return
	}

	if err := s.store.Set(ctx, s.storageKey, string(raw)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist revalidation tokens")
	}
}

// Get returns the stored token for key, if any.
func (s *ETagStore) Get(key cache.Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[key.String()]
	return token, ok
}

// Set stores a token for key and persists the snapshot.
func (s *ETagStore) Set(ctx context.Context, key cache.Key, token string) {
	s.mu.Lock()
	s.tokens[key.String()] = token
	s.mu.Unlock()
	s.persist(ctx)
}

// Delete removes the token for key and persists the snapshot.
func (s *ETagStore) Delete(ctx context.Context, key cache.Key) {
	s.mu.Lock()
	_, existed := s.tokens[key.String()]
	delete(s.tokens, key.String())
	s.mu.Unlock()
	if existed {
		s.persist(ctx)
	}
}

// Clear removes all tokens and persists the empty snapshot.
func (s *ETagStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.tokens = make(map[string]string)
	s.mu.Unlock()
	s.persist(ctx)
}

// Len returns the number of stored tokens.
func (s *ETagStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
