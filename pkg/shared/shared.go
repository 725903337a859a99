// Package shared provides the store visible to every client of the same
// workspace: a flat key-value surface with a change notification fired on any
// client's Set. It carries the replicated session collection, the presence
// map, and the theme preference as opaque blobs.
//
// The package includes a BadgerDB-backed implementation for cross-process use
// and an in-memory implementation for testing and single-process setups.
package shared

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("shared: not found")
)

// Well-known keys. Values are opaque blobs owned by the collab layer.
const (
	// KeySessions holds the serialized session collection.
	KeySessions = "medley:sessions"
	// KeyPresence holds the serialized presence map.
	KeyPresence = "medley:presence"
	// KeyTheme holds the theme preference flag.
	KeyTheme = "medley:theme"
)

// Event is one observed write: the key and the value as written.
type Event struct {
	Key   string
	Value []byte
}

// Store is a key-value surface shared by all clients of a workspace.
//
// Watch delivers an Event for every Set on the key, by this client or any
// other. Delivery coalesces: a slow watcher observes the latest write, not
// necessarily every intermediate one. That matches the last-write-wins policy
// of everything stored here.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value, and fires
	// the key's watchers.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Watch observes writes to a key until ctx is canceled. The channel is
	// closed when the watch ends.
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Close releases any resources held by the store.
	Close() error
}

// push delivers ev into a capacity-1 mailbox, displacing an undelivered
// older event so the watcher always ends up with the latest write.
func push(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
