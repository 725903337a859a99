package studio

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeSessions serializes the whole session collection into the compact
// blob replicated through the shared store. Encoding then decoding reproduces
// an identical collection: ids, prompts, artifact order, and every artifact
// field survive the round trip.
func EncodeSessions(sessions []*Session) ([]byte, error) {
	b, err := msgpack.Marshal(sessions)
	if err != nil {
		return nil, fmt.Errorf("studio: encode sessions: %w", err)
	}
	return b, nil
}

// DecodeSessions deserializes a replicated session-collection blob.
func DecodeSessions(data []byte) ([]*Session, error) {
	var sessions []*Session
	if err := msgpack.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("studio: decode sessions: %w", err)
	}
	return sessions, nil
}
