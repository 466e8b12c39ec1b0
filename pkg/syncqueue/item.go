package syncqueue

import (
	"encoding/json"
	"time"
)

// Operation is the kind of write an item replays against the backend.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// valid reports whether op is one of the known operations.
func (op Operation) valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Item is one buffered write operation awaiting replay.
//
// An item stays queued until it either replays successfully or is explicitly
// cancelled by the user; it is never silently dropped. Failed replay attempts
// increment Retries and record LastError.
type Item struct {
	// ID is the generated unique identifier
	ID string `json:"id"`

	// Entity is the logical entity the write targets (e.g. "booking")
	Entity string `json:"entity"`

	// Operation is create, update, or delete
	Operation Operation `json:"operation"`

	// Payload is the opaque request body
	Payload json.RawMessage `json:"payload"`

	// Retries counts failed replay attempts
	Retries int `json:"retries"`

	// LastError is the message from the most recent failed replay
	LastError string `json:"last_error,omitempty"`

	// EnqueuedAt is when the item was appended
	EnqueuedAt time.Time `json:"enqueued_at"`
}
