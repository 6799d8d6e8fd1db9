package store

import (
	"context"
	"sync"
)

// Memory keeps entities in process. Used for dry runs and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, kind string, id []byte) ([]byte, bool, error) {
	m.mu.RLock()
	data, ok := m.data[string(Key(kind, id))]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *Memory) Put(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.data[string(Key(rec.Kind, rec.ID))] = append([]byte(nil), rec.Data...)
	}
	return nil
}

// Len reports the number of stored entities.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
