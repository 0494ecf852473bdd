package flags

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-node dev.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, clientID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[clientID+"\x00"+key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, clientID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[clientID+"\x00"+key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, clientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, clientID+"\x00"+key)
	return nil
}
