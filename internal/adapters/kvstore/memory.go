package kvstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend is an in-process Backend, used for tests and ephemeral runs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// NewMemoryStore is shorthand for New(NewMemoryBackend()).
func NewMemoryStore() *Store {
	return New(NewMemoryBackend())
}

func (m *MemoryBackend) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key.String()]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Scan(_ context.Context, prefix Key) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := prefix.String()
	var keys []string
	for enc := range m.data {
		if strings.HasPrefix(enc, p) {
			keys = append(keys, enc)
		}
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, enc := range keys {
		k, err := ParseKey(enc)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: k, Value: append([]byte(nil), m.data[enc]...)})
	}
	return out, nil
}

func (m *MemoryBackend) Commit(_ context.Context, writes []Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range writes {
		if w.Delete {
			delete(m.data, w.Key.String())
			continue
		}
		m.data[w.Key.String()] = append([]byte(nil), w.Value...)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Ensure MemoryBackend implements the interface
var _ Backend = (*MemoryBackend)(nil)
