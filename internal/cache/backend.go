// Package cache mirrors session fields into durable key/value storage so they survive
// process restarts. Persistence is best effort: the Cache adapter never returns an error.
package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Backend when the key does not exist
var ErrNotFound = errors.New("key not found")

// Backend defines the raw key/value storage operations behind a Cache
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// memoryBackend implements Backend with an in-process map
type memoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates a Backend that lives only as long as the process
func NewMemoryBackend() Backend {
	return &memoryBackend{values: make(map[string]string)}
}

func (m *memoryBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
