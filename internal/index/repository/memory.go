package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/quillsync/quillsync/internal/index"
)

var (
	ErrNotFound = errors.New("index not found")
)

// MemoryRepo keeps one index snapshot per user id in memory. Used for unit
// tests and for running without MongoDB.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*index.Snapshot
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*index.Snapshot)}
}

func (m *MemoryRepo) Get(ctx context.Context, userID string) (*index.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryRepo) Save(ctx context.Context, snap *index.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[snap.UserID] = clone(snap)
	return nil
}

func clone(s *index.Snapshot) *index.Snapshot {
	cp := index.NewSnapshot(s.UserID)
	cp.UpdatedAt = s.UpdatedAt
	for k, v := range s.Entries {
		cp.Entries[k] = v
	}
	return cp
}
