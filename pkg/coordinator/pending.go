package coordinator

import (
	"context"
	"sync"
	"time"
)

// pendingCall is the shared handle for one in-flight fetch. Every caller that
// joins within the dedup window waits on the same settlement, so all of them
// observe the identical result or the identical error.
type pendingCall struct {
	startedAt time.Time
	done      chan struct{}
	data      []byte
	err       error
}

func (c *pendingCall) settle(data []byte, err error) {
	c.data = data
	c.err = err
	close(c.done)
}

// wait blocks until the call settles or the caller's context ends.
func (c *pendingCall) wait(ctx context.Context) ([]byte, error) {
	select {
	case <-c.done:
		return c.data, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingTracker maps cache keys to their in-flight call, if any.
type pendingTracker struct {
	mu    sync.Mutex
	calls map[string]*pendingCall
	now   func() time.Time
}

func newPendingTracker(now func() time.Time) *pendingTracker {
	return &pendingTracker{
		calls: make(map[string]*pendingCall),
		now:   now,
	}
}

// join returns the in-flight call for key if one was started within the
// dedup window. A call older than the window is treated as hung and is not
// joined; the next register for the key replaces it.
func (t *pendingTracker) join(key string, window time.Duration) (*pendingCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call, ok := t.calls[key]
	if !ok {
		return nil, false
	}
	if t.now().Sub(call.startedAt) >= window {
		return nil, false
	}
	return call, true
}

// acquire installs a new call for key, replacing any previous registration.
// Unless force is set, an existing call still within the dedup window is
// joined instead; the second return value reports a join. The check and the
// registration happen under one lock so two concurrent misses cannot both
// register.
func (t *pendingTracker) acquire(key string, window time.Duration, force bool) (*pendingCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !force {
		if call, ok := t.calls[key]; ok && t.now().Sub(call.startedAt) < window {
			return call, true
		}
	}

	call := &pendingCall{
		startedAt: t.now(),
		done:      make(chan struct{}),
	}
	t.calls[key] = call
	return call, false
}

// remove deletes the registration for key, but only if it still refers to
// call. A hung call that was replaced must not evict its replacement.
func (t *pendingTracker) remove(key string, call *pendingCall) {
	t.mu.Lock()
	if cur, ok := t.calls[key]; ok && cur == call {
		delete(t.calls, key)
	}
	t.mu.Unlock()
}

func (t *pendingTracker) removeKey(key string) {
	t.mu.Lock()
	delete(t.calls, key)
	t.mu.Unlock()
}

func (t *pendingTracker) clear() {
	t.mu.Lock()
	t.calls = make(map[string]*pendingCall)
	t.mu.Unlock()
}

func (t *pendingTracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}
