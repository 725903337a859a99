package shared

import (
	"context"
	"sync"
)

// Memory is an in-memory Store implementation. It is safe for concurrent use
// and serves single-process setups and tests, where all "clients" live in the
// same address space.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[string]map[int]chan Event
	nextID   int
	closed   bool
}

// NewMemory creates a new in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string][]byte),
		watchers: make(map[string]map[int]chan Event),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = cp

	// push never blocks, so fanning out under the lock is fine and keeps the
	// sends ordered against Watch channel closure.
	ev := Event{Key: key, Value: cp}
	for _, ch := range m.watchers[key] {
		push(ch, ev)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Watch(ctx context.Context, key string) (<-chan Event, error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	ch := make(chan Event, 1)
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[int]chan Event)
	}
	m.watchers[key][id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers[key], id)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
