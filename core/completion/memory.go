package completion

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryIndex is an in-process Index used in tests and single-node setups.
type MemoryIndex struct {
	mu   sync.RWMutex
	data map[string]time.Time
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{data: map[string]time.Time{}}
}

func (m *MemoryIndex) Get(_ context.Context, plate string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.data[plate]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, plate)
	}
	return at, nil
}

func (m *MemoryIndex) Set(_ context.Context, plate string, at time.Time) error {
	m.mu.Lock()
	m.data[plate] = at.UTC()
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, plate string) error {
	m.mu.Lock()
	delete(m.data, plate)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Entry, 0, len(m.data))
	for plate, at := range m.data {
		res = append(res, Entry{Plate: plate, At: at})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Plate < res[j].Plate })
	return res, nil
}

func (m *MemoryIndex) Close() error { return nil }
