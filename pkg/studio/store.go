package studio

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors.
var (
	ErrSessionNotFound  = errors.New("studio: session not found")
	ErrArtifactNotFound = errors.New("studio: artifact not found")
)

// Store is the in-memory source of truth for sessions. All mutations are
// whole-artifact or whole-collection replacements (copy-on-write), so readers
// always observe complete, self-consistent snapshots without fine-grained
// locking. The orchestrator writes; collaboration sync reads and replaces.
type Store struct {
	mu       sync.RWMutex
	sessions []*Session
	byID     map[string]*Session
	version  uint64
	watchers map[int]chan struct{}
	nextW    int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID:     make(map[string]*Session),
		watchers: make(map[int]chan struct{}),
	}
}

// Append adds a new session. The store takes ownership of the value; callers
// must not mutate it afterwards.
func (st *Store) Append(s *Session) {
	st.mu.Lock()
	st.sessions = append(st.sessions, s)
	st.byID[s.ID] = s
	st.bumpLocked()
	st.mu.Unlock()
}

// Session returns a deep snapshot of the session with the given id.
func (st *Store) Session(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byID[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Sessions returns a deep snapshot of the whole collection in creation order.
func (st *Store) Sessions() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, len(st.sessions))
	for i, s := range st.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Artifact returns a deep snapshot of one artifact.
func (st *Store) Artifact(sessionID, artifactID string) (*Artifact, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	a := s.Artifact(artifactID)
	if a == nil {
		return nil, ErrArtifactNotFound
	}
	return a.Clone(), nil
}

// ReplaceArtifact swaps an artifact wholesale inside its session. The
// replacement must keep the artifact's id and type (both immutable) and make
// a legal status transition from the stored value. Observers never see a
// partially-written artifact: the stored pointer is replaced in one step.
func (st *Store) ReplaceArtifact(sessionID string, next *Artifact) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	for i, a := range s.Artifacts {
		if a.ID != next.ID {
			continue
		}
		if a.Type != next.Type {
			return fmt.Errorf("studio: artifact %s: type is immutable (%s -> %s)", a.ID, a.Type, next.Type)
		}
		if a.Status != next.Status && !a.Status.CanTransition(next.Status) {
			return fmt.Errorf("studio: artifact %s: illegal transition %s -> %s", a.ID, a.Status, next.Status)
		}
		s.Artifacts[i] = next.Clone()
		st.bumpLocked()
		return nil
	}
	return ErrArtifactNotFound
}

// ResetArtifact is the retry edge out of a terminal state: it resets the
// artifact to its type's initial streaming state, clearing accumulated
// content while preserving id, type, and style.
func (st *Store) ResetArtifact(sessionID, artifactID string) (*Artifact, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	for i, a := range s.Artifacts {
		if a.ID != artifactID {
			continue
		}
		fresh := &Artifact{
			ID:        a.ID,
			Type:      a.Type,
			StyleName: a.StyleName,
			Status:    a.Type.initialStatus(),
		}
		s.Artifacts[i] = fresh
		st.bumpLocked()
		return fresh.Clone(), nil
	}
	return nil, ErrArtifactNotFound
}

// ReplaceAll swaps the entire collection, e.g. when a replicated blob arrives
// from another client. Whole-state replacement only; no merging.
func (st *Store) ReplaceAll(sessions []*Session) {
	byID := make(map[string]*Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}
	st.mu.Lock()
	st.sessions = sessions
	st.byID = byID
	st.bumpLocked()
	st.mu.Unlock()
}

// Version returns a counter bumped on every mutation.
func (st *Store) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}

// Subscribe registers a coalescing change signal. The returned channel
// receives at most one pending notification; cancel unregisters it.
func (st *Store) Subscribe() (<-chan struct{}, func()) {
	st.mu.Lock()
	id := st.nextW
	st.nextW++
	ch := make(chan struct{}, 1)
	st.watchers[id] = ch
	st.mu.Unlock()

	cancel := func() {
		st.mu.Lock()
		delete(st.watchers, id)
		st.mu.Unlock()
	}
	return ch, cancel
}

func (st *Store) bumpLocked() {
	st.version++
	for _, ch := range st.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
