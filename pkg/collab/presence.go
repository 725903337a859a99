package collab

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Presence maps a client-instance id to its last heartbeat time.
type Presence map[string]time.Time

// Prune returns the entries still considered live at now: those whose last
// heartbeat is within staleAfter. Eviction is self-healing because every
// surviving client republishes the pruned map on its own heartbeat tick.
func (p Presence) Prune(now time.Time, staleAfter time.Duration) Presence {
	out := make(Presence, len(p))
	for id, ts := range p {
		if now.Sub(ts) <= staleAfter {
			out[id] = ts
		}
	}
	return out
}

// EncodePresence serializes the presence map for the shared store.
func EncodePresence(p Presence) ([]byte, error) {
	b, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("collab: encode presence: %w", err)
	}
	return b, nil
}

// DecodePresence deserializes a presence blob. A nil or empty blob decodes to
// an empty map.
func DecodePresence(data []byte) (Presence, error) {
	if len(data) == 0 {
		return Presence{}, nil
	}
	var p Presence
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("collab: decode presence: %w", err)
	}
	if p == nil {
		p = Presence{}
	}
	return p, nil
}
