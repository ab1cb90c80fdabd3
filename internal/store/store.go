// internal/store/store.go
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted
var ErrNotFound = errors.New("store: key not found")

// Store is a persisted key-value store. Values are opaque bytes; the
// repositories keep one JSON array per entity collection under a stable key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes all given keys in one step: either every key is gone
	// afterwards or none is.
	Delete(ctx context.Context, keys ...string) error
	// Locker serialises read-modify-write cycles on a key across every
	// process sharing the store.
	Locker
}

// Memory is an in-process Store
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	locks LocalLocker
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *Memory) Lock(ctx context.Context, name string) (func(), error) {
	return m.locks.Lock(ctx, name)
}

var _ Store = (*Memory)(nil)
