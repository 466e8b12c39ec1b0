// Package ratelimit gates manual sync attempts so a user repeatedly tapping
// "refresh" cannot hammer the backend. A sync is permitted once per minimum
// interval; a denied attempt yields the remaining wait time, not an error.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// DefaultMinimumInterval is the default spacing between manual sync attempts.
const DefaultMinimumInterval = 30 * time.Second

// State is a snapshot of the limiter for the UI layer.
type State struct {
	// LastSyncAttempt is when a sync was last initiated (zero if never).
	LastSyncAttempt time.Time `json:"last_sync_attempt"`

	// MinimumInterval is the required spacing between attempts.
	MinimumInterval time.Duration `json:"minimum_interval"`
}

// Limiter enforces a minimum interval between sync attempts.
type Limiter struct {
	mu          sync.Mutex
	lastAttempt time.Time
	minInterval time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewLimiter creates a limiter with the given minimum interval.
// A non-positive interval falls back to DefaultMinimumInterval.
func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinimumInterval
	}
	return &Limiter{
		minInterval: minInterval,
		now:         time.Now,
	}
}

// CanSync reports whether enough time has passed since the last attempt.
func (l *Limiter) CanSync() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now().Sub(l.lastAttempt) >= l.minInterval
}

// RecordAttempt marks a sync as initiated. Called unconditionally whenever a
// sync starts, whether triggered manually or by a connectivity transition.
func (l *Limiter) RecordAttempt() {
	l.mu.Lock()
	l.lastAttempt = l.now()
	l.mu.Unlock()
}

// RemainingWait returns the non-negative duration until the next permitted
// attempt. Returns 0 when a sync is allowed now.
func (l *Limiter) RemainingWait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.minInterval - l.now().Sub(l.lastAttempt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// State returns a snapshot of the limiter.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		LastSyncAttempt: l.lastAttempt,
		MinimumInterval: l.minInterval,
	}
}

// WaitMessage returns a user-facing message describing the remaining wait,
// or an empty string when a sync is allowed now.
func (l *Limiter) WaitMessage() string {
	remaining := l.RemainingWait()
	if remaining == 0 {
		return ""
	}
	return fmt.Sprintf("Please wait %s before syncing again", FormatWait(remaining))
}

// FormatWait renders a duration as minutes/seconds for display.
// Sub-second remainders round up so the message never shows "0s" early.
func FormatWait(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs >= 60 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}
