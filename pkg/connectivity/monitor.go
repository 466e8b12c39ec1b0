// Package connectivity supplies the online/offline signal consumed by the
// request coordinator and the sync manager. The host application can drive a
// Switch directly from its platform reachability events, or run a Probe that
// derives the signal from periodic HTTP checks.
package connectivity

import (
	"sync"
)

// Monitor reports the current connectivity state and notifies subscribers of
// transitions.
type Monitor interface {
	// IsOnline reports whether the network is currently reachable.
	IsOnline() bool

	// Subscribe registers fn to be called on every online/offline transition.
	// The returned cancel func removes the subscription.
	Subscribe(fn func(online bool)) (cancel func())
}

// Switch is a manually driven Monitor. The host application flips it from its
// own reachability callbacks; tests flip it directly.
type Switch struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

// NewSwitch creates a Switch in the given initial state.
func NewSwitch(online bool) *Switch {
	return &Switch{
		online: online,
		subs:   make(map[int]func(online bool)),
	}
}

// IsOnline reports the current state.
func (s *Switch) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline updates the state and notifies subscribers on transitions.
// Setting the same state twice does not re-notify.
func (s *Switch) SetOnline(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online

	subs := make([]func(online bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the switch.
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a transition callback.
func (s *Switch) Subscribe(fn func(online bool)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
