package delay

import (
	"context"
	"sync"
)

// MemoryStore keeps the value in process memory behind a mutex.
type MemoryStore struct {
	mu     sync.Mutex
	bounds Bounds
	value  int
}

func NewMemoryStore(b Bounds) *MemoryStore {
	return &MemoryStore{bounds: b, value: b.Clamp(b.Default)}
}

func (m *MemoryStore) Get(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *MemoryStore) Swap(_ context.Context, v int) (int, int, error) {
	v = m.bounds.Clamp(v)
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.value
	m.value = v
	return prev, v, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
