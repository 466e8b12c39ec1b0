package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/clubworks/clubsync/pkg/cache"
	"github.com/clubworks/clubsync/pkg/coordinator"
	"github.com/clubworks/clubsync/pkg/syncqueue"
)

// Club is a sports club as returned by the backend.
type Club struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// Coach is a club coach.
type Coach struct {
	ID     int64  `json:"id"`
	ClubID int64  `json:"club_id"`
	Name   string `json:"name"`
}

// Booking is a court or coach booking.
type Booking struct {
	ID       int64     `json:"id"`
	ClubID   int64     `json:"club_id"`
	CoachID  int64     `json:"coach_id,omitempty"`
	MemberID int64     `json:"member_id"`
	Status   string    `json:"status"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// ListClubs returns all clubs, served from cache when fresh.
func (c *Client) ListClubs(ctx context.Context) ([]Club, error) {
	key := cache.Key{Endpoint: entityPath("club")}
	var clubs []Club
	if err := c.GetJSON(ctx, key, &clubs, coordinator.Options{}); err != nil {
		return nil, err
	}
	return clubs, nil
}

// ListCoaches returns the coaches of one club.
func (c *Client) ListCoaches(ctx context.Context, clubID int64) ([]Coach, error) {
	key := cache.Key{
		Endpoint:   "/v1/clubs/{club_id}/coaches/",
		PathParams: map[string]string{"club_id": fmt.Sprintf("%d", clubID)},
	}
	var coaches []Coach
	if err := c.GetJSON(ctx, key, &coaches, coordinator.Options{}); err != nil {
		return nil, err
	}
	return coaches, nil
}

// ListBookings returns a club's bookings, optionally filtered by status. The
// result is scoped to the authenticated member via userID.
func (c *Client) ListBookings(ctx context.Context, clubID, userID int64, status string) ([]Booking, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	key := cache.Key{
		Endpoint:    "/v1/clubs/{club_id}/bookings/",
		PathParams:  map[string]string{"club_id": fmt.Sprintf("%d", clubID)},
		QueryParams: params,
		UserID:      userID,
	}
	var bookings []Booking
	if err := c.GetJSON(ctx, key, &bookings, coordinator.Options{}); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CreateBooking submits a new booking, queueing it when offline.
func (c *Client) CreateBooking(ctx context.Context, booking Booking) error {
	return c.Write(ctx, "booking", syncqueue.OpCreate, booking)
}

// UpdateBooking submits a booking change, queueing it when offline.
func (c *Client) UpdateBooking(ctx context.Context, booking Booking) error {
	return c.Write(ctx, "booking", syncqueue.OpUpdate, booking)
}

// DeleteBooking cancels a booking on the backend, queueing it when offline.
func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	return c.Write(ctx, "booking", syncqueue.OpDelete, struct {
		ID int64 `json:"id"`
	}{ID: id})
}
