package kvstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Veraticus/dompet/internal/common"
)

// MemoryStore is an in-process Store for tests. SaveErr, when set, is returned
// by every Save without changing the stored value.
type MemoryStore struct {
	SaveErr error
	data    map[string][]byte
	saves   map[string]int
	mu      sync.Mutex
	closed  bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string][]byte),
		saves: make(map[string]int),
	}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return common.Permanent(ErrClosed)
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data[key] = slices.Clone(value)
	m.saves[key]++
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// SaveCount reports how many successful saves were made under key.
func (m *MemoryStore) SaveCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[key]
}

// SetSaveErr swaps the injected save failure.
func (m *MemoryStore) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveErr = err
}

// Put seeds a raw value without counting it as a save.
func (m *MemoryStore) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
