package cache

import (
	"testing"
	"time"
)

func testKey(endpoint string) Key {
	return Key{Endpoint: endpoint}
}

func freshEntry(data string) *Entry {
	now := time.Now()
	return &Entry{
		Data:      []byte(data),
		CreatedAt: now,
		Expires:   now.Add(5 * time.Minute),
	}
}

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore()
	key := testKey("/v1/clubs/")

	entry := freshEntry(`[{"id":17}]`)
	entry.ETag = `"abc123"`

	if err := store.Set(key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Data) != `[{"id":17}]` {
		t.Errorf("Data mismatch: got %s", retrieved.Data)
	}
	if retrieved.ETag != `"abc123"` {
		t.Errorf("ETag mismatch: got %s", retrieved.ETag)
	}
}

func TestStore_Get_Miss(t *testing.T) {
	store := NewStore()

	_, err := store.Get(testKey("/v1/nonexistent/"))
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestStore_Get_ExpiredEntry(t *testing.T) {
	store := NewStore()
	key := testKey("/v1/clubs/")

	entry := &Entry{
		Data:      []byte(`[]`),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		Expires:   time.Now().Add(-1 * time.Hour),
	}
	if err := store.Set(key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Fresh read misses...
	if _, err := store.Get(key); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}

	// ...but the entry stays retrievable as stale.
	stale, ok := store.GetStale(key)
	if !ok {
		t.Fatal("GetStale should find the expired entry")
	}
	if string(stale.Data) != `[]` {
		t.Errorf("Stale data mismatch: got %s", stale.Data)
	}
}

func TestStore_Set_InvalidWindow(t *testing.T) {
	store := NewStore()
	now := time.Now()

	entry := &Entry{
		Data:      []byte(`{}`),
		CreatedAt: now,
		Expires:   now.Add(-1 * time.Second),
	}
	if err := store.Set(testKey("/v1/clubs/"), entry); err == nil {
		t.Error("Set should reject expires before created")
	}
}

func TestStore_Set_Nil(t *testing.T) {
	store := NewStore()
	if err := store.Set(testKey("/v1/clubs/"), nil); err == nil {
		t.Error("Set should reject nil entry")
	}
}

func TestStore_ExtendTTL(t *testing.T) {
	store := NewStore()
	key := testKey("/v1/clubs/")

	entry := freshEntry(`[]`)
	entry.ETag = `"tag"`
	if err := store.Set(key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := store.ExtendTTL(key, newExpires); err != nil {
		t.Fatalf("ExtendTTL failed: %v", err)
	}

	retrieved, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get after ExtendTTL failed: %v", err)
	}
	if !retrieved.Expires.Equal(newExpires) {
		t.Errorf("Expires = %v, want %v", retrieved.Expires, newExpires)
	}
	// Data and token unchanged
	if string(retrieved.Data) != `[]` || retrieved.ETag != `"tag"` {
		t.Error("ExtendTTL must not touch data or token")
	}
}

func TestStore_ExtendTTL_Missing(t *testing.T) {
	store := NewStore()
	err := store.ExtendTTL(testKey("/v1/missing/"), time.Now().Add(time.Minute))
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()
	key := testKey("/v1/clubs/")

	if err := store.Set(key, freshEntry(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	store.Delete(key)

	if _, err := store.Get(key); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
	if _, ok := store.GetStale(key); ok {
		t.Error("Delete must also remove the stale copy")
	}
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()

	for _, ep := range []string{"/v1/clubs/", "/v1/coaches/", "/v1/bookings/"} {
		if err := store.Set(testKey(ep), freshEntry(`[]`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", store.Len())
	}
}
