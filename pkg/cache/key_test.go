package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "simple endpoint no params",
			key: Key{
				Endpoint: "/v1/clubs/",
			},
			want: "api:v1/clubs",
		},
		{
			name: "endpoint with path params",
			key: Key{
				Endpoint:   "/v1/clubs/{club_id}/coaches/",
				PathParams: map[string]string{"club_id": "17"},
			},
			want: "api:v1/clubs/{club_id}/coaches:club_id=17",
		},
		{
			name: "endpoint with query params",
			key: Key{
				Endpoint: "/v1/clubs/17/bookings/",
				QueryParams: url.Values{
					"status": []string{"confirmed"},
				},
			},
			want: "api:v1/clubs/17/bookings:status=confirmed",
		},
		{
			name: "endpoint with multiple query params (sorted)",
			key: Key{
				Endpoint: "/v1/clubs/17/bookings/",
				QueryParams: url.Values{
					"status": []string{"confirmed"},
					"page":   []string{"1"},
				},
			},
			want: "api:v1/clubs/17/bookings:page=1:status=confirmed",
		},
		{
			name: "member-scoped endpoint",
			key: Key{
				Endpoint: "/v1/members/{member_id}/bookings/",
				UserID:   123456789,
			},
			want: "api:v1/members/{member_id}/bookings:user=123456789",
		},
		{
			name: "complex key with all params",
			key: Key{
				Endpoint:   "/v1/clubs/{club_id}/bookings/",
				PathParams: map[string]string{"club_id": "17"},
				QueryParams: url.Values{
					"status": []string{"confirmed"},
					"date":   []string{"2024-06-01"},
				},
				UserID: 42,
			},
			want: "api:v1/clubs/{club_id}/bookings:club_id=17:date=2024-06-01:status=confirmed:user=42",
		},
		{
			name: "empty endpoint",
			key:  Key{},
			want: "api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	// Identical endpoint and semantically equal parameter sets must map to
	// the same key regardless of construction order.
	k1 := Key{
		Endpoint: "/v1/clubs/17/bookings/",
		QueryParams: url.Values{
			"page":   []string{"2"},
			"status": []string{"pending"},
		},
	}

	params := url.Values{}
	params.Set("status", "pending")
	params.Set("page", "2")
	k2 := Key{
		Endpoint:    "v1/clubs/17/bookings",
		QueryParams: params,
	}

	if k1.String() != k2.String() {
		t.Errorf("equivalent keys differ: %q vs %q", k1.String(), k2.String())
	}
}
