package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "future expiry",
			expires: time.Now().Add(5 * time.Minute),
			want:    false,
		},
		{
			name:    "past expiry",
			expires: time.Now().Add(-1 * time.Minute),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	t.Run("positive TTL", func(t *testing.T) {
		entry := &Entry{Expires: time.Now().Add(5 * time.Minute)}
		ttl := entry.TTL()
		if ttl <= 4*time.Minute || ttl > 5*time.Minute {
			t.Errorf("TTL() = %v, want ~5m", ttl)
		}
	})

	t.Run("expired entry returns zero", func(t *testing.T) {
		entry := &Entry{Expires: time.Now().Add(-1 * time.Hour)}
		if ttl := entry.TTL(); ttl != 0 {
			t.Errorf("TTL() = %v, want 0", ttl)
		}
	})
}
