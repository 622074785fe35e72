package sdk

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
)

// MemoryState keeps everything in a map. Used by tests and the cli dry runs,
// optionally mirrored to a JSON file so a run can be inspected afterwards.
type MemoryState struct {
	mu       sync.RWMutex
	db       map[string]string
	filename string
	closed   bool
}

// NewMemoryState returns an empty store that never touches disk.
func NewMemoryState() *MemoryState {
	return &MemoryState{db: make(map[string]string)}
}

// NewFileBackedMemoryState loads filename (if present) and rewrites it after every change.
func NewFileBackedMemoryState(filename string) (*MemoryState, error) {
	m := &MemoryState{db: make(map[string]string), filename: filename}
	if err := m.loadFromFile(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoryState) Get(key string) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStateClosed
	}
	val, ok := m.db[key]
	if !ok {
		return nil, nil
	}
	return &val, nil
}

func (m *MemoryState) Set(key, value string) error {
	b := NewBatch()
	b.Set(key, value)
	return m.Apply(b)
}

func (m *MemoryState) Delete(key string) error {
	b := NewBatch()
	b.Delete(key)
	return m.Apply(b)
}

func (m *MemoryState) Apply(b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStateClosed
	}
	b.Each(func(key, value string, del bool) {
		if del {
			delete(m.db, key)
			return
		}
		m.db[key] = value
	})
	return m.saveToFile()
}

func (m *MemoryState) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStateClosed
	}
	keys := make([]string, 0)
	for k := range m.db {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len is the number of stored keys.
func (m *MemoryState) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.db)
}

func (m *MemoryState) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// saveToFile writes the full map as JSON, a no-op for pure in-memory stores.
func (m *MemoryState) saveToFile() error {
	if m.filename == "" {
		return nil
	}
	data, err := json.MarshalIndent(m.db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.filename, data, 0o644)
}

func (m *MemoryState) loadFromFile() error {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &m.db)
}
