package client

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clubworks/clubsync/internal/testutil"
	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/connectivity"
	"github.com/clubworks/clubsync/pkg/coordinator"
	"github.com/clubworks/clubsync/pkg/kv"
	"github.com/clubworks/clubsync/pkg/syncqueue"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        50 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newTestClient(t *testing.T, mock *testutil.MockBackend, online bool) (*Client, *connectivity.Switch) {
	t.Helper()
	sw := connectivity.NewSwitch(online)
	cfg := DefaultConfig(mock.URL(), "ClubWorks-Test/1.0", kv.NewMemoryStore(), sw)
	cfg.Retry = fastRetry()
	cfg.SyncMinInterval = time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, sw
}

func TestNew_Validation(t *testing.T) {
	sw := connectivity.NewSwitch(true)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing base URL", Config{UserAgent: "test/1.0", Monitor: sw}},
		{"missing user-agent", Config{BaseURL: "http://localhost", Monitor: sw}},
		{"missing monitor", Config{BaseURL: "http://localhost", UserAgent: "test/1.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New should reject invalid config")
			}
		})
	}
}

func TestGet_CachesAndRevalidates(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetHandler("/v1/clubs/", testutil.NewConditionalHandler(`"v1"`, `[{"id":1,"name":"TC Nord","city":"Hamburg"}]`))

	c, _ := newTestClient(t, mock, true)
	ctx := context.Background()

	clubs, err := c.ListClubs(ctx)
	if err != nil {
		t.Fatalf("ListClubs failed: %v", err)
	}
	if len(clubs) != 1 || clubs[0].Name != "TC Nord" {
		t.Errorf("clubs = %+v", clubs)
	}
	if mock.GetRequestCount() != 1 {
		t.Fatalf("requests = %d, want 1", mock.GetRequestCount())
	}

	// Fresh cache: no second request.
	if _, err := c.ListClubs(ctx); err != nil {
		t.Fatalf("second ListClubs failed: %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (served from cache)", mock.GetRequestCount())
	}

	// Forced refresh revalidates with the stored token and accepts the 304.
	key := cache.Key{Endpoint: entityPath("club")}
	data, err := c.Get(ctx, key, coordinator.Options{ForceRefresh: true})
	if err != nil {
		t.Fatalf("forced Get failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("304 must return the cached payload")
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.GetConditionalCount())
	}
}

func TestGet_RetriesServerError(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	var attempts int32
	mock.SetHandler("/v1/clubs/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	})

	c, _ := newTestClient(t, mock, true)

	if _, err := c.ListClubs(context.Background()); err != nil {
		t.Fatalf("ListClubs should succeed after retry: %v", err)
	}
	if n := atomic.LoadInt32(&attempts); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestGet_ClientErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/v1/clubs/", testutil.MockResponse{StatusCode: http.StatusNotFound})

	c, _ := newTestClient(t, mock, true)

	_, err := c.ListClubs(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassClient {
		t.Fatalf("err = %v, want client-class APIError", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (4xx must not retry)", mock.GetRequestCount())
	}
}

func TestWrite_OnlineSuccess(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/v1/bookings/42/", testutil.MockResponse{StatusCode: http.StatusOK})

	c, _ := newTestClient(t, mock, true)

	err := c.UpdateBooking(context.Background(), Booking{ID: 42, Status: "confirmed"})
	if err != nil {
		t.Fatalf("UpdateBooking failed: %v", err)
	}
	if mock.GetWriteCount() != 1 {
		t.Errorf("writes = %d, want 1", mock.GetWriteCount())
	}
	if c.SyncStatus().QueueLength != 0 {
		t.Error("successful online write must not be queued")
	}
}

func TestWrite_OfflineQueues(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	c, _ := newTestClient(t, mock, false)

	err := c.UpdateBooking(context.Background(), Booking{ID: 42, Status: "confirmed"})
	if !errors.Is(err, ErrQueued) {
		t.Fatalf("offline write err = %v, want ErrQueued", err)
	}
	if mock.GetWriteCount() != 0 {
		t.Error("offline write must not hit the network")
	}
	if c.SyncStatus().QueueLength != 1 {
		t.Errorf("QueueLength = %d, want 1", c.SyncStatus().QueueLength)
	}
}

func TestWrite_TransientFailureQueues(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/v1/bookings/", testutil.NewServerErrorResponse())

	c, _ := newTestClient(t, mock, true)

	err := c.CreateBooking(context.Background(), Booking{ID: 7, ClubID: 1})
	if !errors.Is(err, ErrQueued) {
		t.Fatalf("transient write err = %v, want ErrQueued", err)
	}
	if c.SyncStatus().QueueLength != 1 {
		t.Errorf("QueueLength = %d, want 1", c.SyncStatus().QueueLength)
	}
}

func TestWrite_PermanentFailureSurfaces(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/v1/bookings/42/", testutil.MockResponse{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       `{"error": "slot already taken"}`,
	})

	c, _ := newTestClient(t, mock, true)

	err := c.UpdateBooking(context.Background(), Booking{ID: 42})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassClient {
		t.Fatalf("err = %v, want client-class APIError", err)
	}
	if c.SyncStatus().QueueLength != 0 {
		t.Error("rejected write must not be queued")
	}
}

func TestQueuedWrite_ReplaysOnReconnect(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.SetResponse("/v1/bookings/42/", testutil.MockResponse{StatusCode: http.StatusOK})

	c, sw := newTestClient(t, mock, false)
	ctx := context.Background()

	if err := c.UpdateBooking(ctx, Booking{ID: 42, Status: "confirmed"}); !errors.Is(err, ErrQueued) {
		t.Fatalf("offline write err = %v, want ErrQueued", err)
	}

	sw.SetOnline(true)

	deadline := time.After(2 * time.Second)
	for c.SyncStatus().QueueLength > 0 {
		select {
		case <-deadline:
			t.Fatal("queue not drained after reconnect")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if mock.GetWriteCount() != 1 {
		t.Errorf("writes = %d, want 1 replay", mock.GetWriteCount())
	}
}

func TestCancelWrite(t *testing.T) {
	mock := testutil.NewMockBackend()
	defer mock.Close()

	c, _ := newTestClient(t, mock, false)
	ctx := context.Background()

	err := c.DeleteBooking(ctx, 9)
	if !errors.Is(err, ErrQueued) {
		t.Fatalf("err = %v, want ErrQueued", err)
	}

	status := c.SyncStatus()
	if status.QueueLength != 1 {
		t.Fatalf("QueueLength = %d, want 1", status.QueueLength)
	}
	id := c.queue.Items()[0].ID
	if !c.CancelWrite(ctx, id) {
		t.Fatal("CancelWrite returned false")
	}
	if c.SyncStatus().QueueLength != 0 {
		t.Error("queue should be empty after cancel")
	}
}

func TestWriteRequest(t *testing.T) {
	tests := []struct {
		name       string
		op         syncqueue.Operation
		payload    string
		wantMethod string
		wantPath   string
		wantErr    bool
	}{
		{"create", syncqueue.OpCreate, `{"club_id":1}`, http.MethodPost, "/v1/bookings/", false},
		{"update", syncqueue.OpUpdate, `{"id":42,"status":"confirmed"}`, http.MethodPut, "/v1/bookings/42/", false},
		{"delete", syncqueue.OpDelete, `{"id":42}`, http.MethodDelete, "/v1/bookings/42/", false},
		{"update without id", syncqueue.OpUpdate, `{"status":"confirmed"}`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, path, _, err := writeRequest("booking", tt.op, []byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("writeRequest failed: %v", err)
			}
			if method != tt.wantMethod || path != tt.wantPath {
				t.Errorf("got %s %s, want %s %s", method, path, tt.wantMethod, tt.wantPath)
			}
		})
	}
}
