package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clubworks/clubsync/pkg/kv"
)

// DefaultQueueStorageKey is the kv key under which the queue snapshot is
// persisted.
const DefaultQueueStorageKey = "clubsync:sync_queue"

// Queue is the durable FIFO list of pending write operations. The in-memory
// slice is authoritative; a JSON snapshot is written through a kv.Store on
// every mutation and reloaded wholesale at construction.
//
// Snapshot write failures are logged and swallowed (best-effort persistence);
// they never fail the in-memory operation.
type Queue struct {
	mu    sync.Mutex
	items []*Item

	store      kv.Store
	storageKey string
	logger     zerolog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewQueue creates a queue backed by the given kv.Store and loads the
// persisted snapshot. A nil store yields a purely in-memory queue.
func NewQueue(ctx context.Context, store kv.Store, logger zerolog.Logger) *Queue {
	q := &Queue{
		store:      store,
		storageKey: DefaultQueueStorageKey,
		logger:     logger,
		now:        time.Now,
	}
	q.load(ctx)
	QueueDepth.Set(float64(q.Len()))
	return q
}

func (q *Queue) load(ctx context.Context) {
	if q.store == nil {
		return
	}

	raw, err := q.store.Get(ctx, q.storageKey)
	if err != nil {
		if err != kv.ErrNotFound {
			q.logger.Warn().Err(err).Msg("Failed to load sync queue")
		}
		return
	}

	var items []*Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		q.logger.Warn().Err(err).Msg("Corrupt sync queue snapshot, starting empty")
		return
	}
	q.items = items

	q.logger.Info().Int("queue_length", len(items)).Msg("Loaded sync queue")
}

// persist writes the current queue snapshot. Best-effort; callers hold q.mu.
func (q *Queue) persist(ctx context.Context) {
	if q.store == nil {
		return
	}

	raw, err := json.Marshal(q.items)
	if err != nil {
		q.logger.Warn().Err(err).Msg("Failed to marshal sync queue")
		return
	}
	if err := q.store.Set(ctx, q.storageKey, string(raw)); err != nil {
		q.logger.Warn().Err(err).Msg("Failed to persist sync queue")
	}
}

// Enqueue appends a new pending item and persists the queue before
// returning, so a crash after Enqueue cannot lose the write. Returns the
// generated item id.
func (q *Queue) Enqueue(ctx context.Context, entity string, op Operation, payload json.RawMessage) (string, error) {
	if entity == "" {
		return "", fmt.Errorf("entity cannot be empty")
	}
	if !op.valid() {
		return "", fmt.Errorf("unknown operation %q", op)
	}

	item := &Item{
		ID:         uuid.NewString(),
		Entity:     entity,
		Operation:  op,
		Payload:    payload,
		EnqueuedAt: q.now(),
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.persist(ctx)
	length := len(q.items)
	q.mu.Unlock()

	QueueDepth.Set(float64(length))
	q.logger.Debug().
		Str("id", item.ID).
		Str("entity", entity).
		Str("operation", string(op)).
		Int("queue_length", length).
		Msg("Enqueued offline write")

	return item.ID, nil
}

// Items returns a copy of the queued items in FIFO order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]Item, len(q.items))
	for i, item := range q.items {
		items[i] = *item
	}
	return items
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Remove deletes the item with the given id after a successful replay.
// Returns false if no such item exists.
func (q *Queue) Remove(ctx context.Context, id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.persist(ctx)
			QueueDepth.Set(float64(len(q.items)))
			return true
		}
	}
	return false
}

// Cancel is the user-facing removal of an item that should not be replayed.
// Semantically identical to Remove but logged as an explicit user action.
func (q *Queue) Cancel(ctx context.Context, id string) bool {
	ok := q.Remove(ctx, id)
	if ok {
		q.logger.Info().Str("id", id).Msg("Queued write cancelled by user")
	}
	return ok
}

// Fail records a failed replay attempt: increments the item's retry count,
// stores the error message, and keeps the item queued.
func (q *Queue) Fail(ctx context.Context, id string, cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			item.Retries++
			item.LastError = cause.Error()
			q.persist(ctx)

			q.logger.Warn().
				Str("id", id).
				Str("entity", item.Entity).
				Int("retries", item.Retries).
				Err(cause).
				Msg("Replay failed, item stays queued")
			return
		}
	}
}
