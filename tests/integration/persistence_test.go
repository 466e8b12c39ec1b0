package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clubworks/clubsync/internal/testutil"
	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/client"
	"github.com/clubworks/clubsync/pkg/connectivity"
	"github.com/clubworks/clubsync/pkg/coordinator"
	"github.com/clubworks/clubsync/pkg/kv"
	"github.com/clubworks/clubsync/pkg/syncqueue"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func TestSyncQueue_SurvivesRestart(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := kv.NewRedisStore(redisClient)

	// First app session: record writes while offline.
	q1 := syncqueue.NewQueue(ctx, store, zerolog.Nop())
	payload, _ := json.Marshal(map[string]interface{}{"id": 42, "status": "confirmed"})
	id, err := q1.Enqueue(ctx, "booking", syncqueue.OpUpdate, payload)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	q1.Fail(ctx, id, errors.New("connection refused"))

	// Second session: a fresh queue over the same store sees the item,
	// including its retry bookkeeping.
	q2 := syncqueue.NewQueue(ctx, store, zerolog.Nop())
	items := q2.Items()
	if len(items) != 1 {
		t.Fatalf("reloaded queue has %d items, want 1", len(items))
	}
	if items[0].ID != id || items[0].Retries != 1 || items[0].LastError != "connection refused" {
		t.Errorf("reloaded item = %+v", items[0])
	}

	// Draining the reloaded queue clears durable storage too.
	m := syncqueue.NewManager(syncqueue.ManagerConfig{
		Queue:   q2,
		Monitor: connectivity.NewSwitch(true),
		Replay: func(ctx context.Context, item syncqueue.Item) error {
			return nil
		},
		Logger: zerolog.Nop(),
	})
	if err := m.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	q3 := syncqueue.NewQueue(ctx, store, zerolog.Nop())
	if q3.Len() != 0 {
		t.Errorf("queue after drained restart has %d items, want 0", q3.Len())
	}
}

func TestETags_SurviveRestart(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := kv.NewRedisStore(redisClient)
	key := cache.Key{Endpoint: "/v1/clubs/"}

	s1 := coordinator.NewETagStore(ctx, store, zerolog.Nop())
	s1.Set(ctx, key, `"v1"`)

	s2 := coordinator.NewETagStore(ctx, store, zerolog.Nop())
	if token, ok := s2.Get(key); !ok || token != `"v1"` {
		t.Errorf("reloaded token = %q, %v; want \"v1\"", token, ok)
	}
}

func TestClient_OfflineWriteReplaysAfterRestart(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/v1/bookings/42/", testutil.NewHealthyResponse(`{"id":42}`))

	ctx := context.Background()
	store := kv.NewRedisStore(redisClient)

	// Session one: offline, the write is queued durably.
	sw1 := connectivity.NewSwitch(false)
	c1, err := client.New(client.DefaultConfig(mock.URL(), "integration-test/1.0", store, sw1))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	writeErr := c1.UpdateBooking(ctx, client.Booking{ID: 42, Status: "confirmed"})
	if !errors.Is(writeErr, client.ErrQueued) {
		t.Fatalf("offline write err = %v, want ErrQueued", writeErr)
	}
	c1.Close()

	// Session two: online from the start, reconnect is simulated by the
	// connectivity transition after startup.
	sw2 := connectivity.NewSwitch(false)
	c2, err := client.New(client.DefaultConfig(mock.URL(), "integration-test/1.0", store, sw2))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c2.Close()

	if c2.SyncStatus().QueueLength != 1 {
		t.Fatalf("restarted client queue length = %d, want 1", c2.SyncStatus().QueueLength)
	}

	sw2.SetOnline(true)

	deadline := time.After(5 * time.Second)
	for c2.SyncStatus().QueueLength > 0 {
		select {
		case <-deadline:
			t.Fatal("queue not drained after restart and reconnect")
		case <-time.After(20 * time.Millisecond):
		}
	}
	if mock.GetWriteCount() != 1 {
		t.Errorf("backend writes = %d, want 1", mock.GetWriteCount())
	}
}
