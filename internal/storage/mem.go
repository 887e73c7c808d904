// ABOUTME: In-memory implementation of the Store interface for unit tests
// ABOUTME: Map-backed, safe for concurrent use, no durability

package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store. It is intended for tests that need a
// storage collaborator without touching the filesystem.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]string

	// FailSet, when non-nil, is returned by every Set call. Lets tests
	// exercise write-failure paths.
	FailSet error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]string),
	}
}

// Get returns the value stored under key, or ErrNotFound.
func (m *MemStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.records[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key.
func (m *MemStore) Set(_ context.Context, key, value string) error {
	if m.FailSet != nil {
		return m.FailSet
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = value
	return nil
}

// Delete removes the record under key.
func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Keys returns all record keys with the given prefix, in lexical order.
func (m *MemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
