package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/quillsync/quillsync/internal/document"
)

var (
	ErrNotFound = errors.New("document not found")
)

// MemoryRepo is an in-memory record store used for unit tests and for
// running without MongoDB. One slot per document id.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*document.Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*document.Record)}
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*document.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.store[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

// Save upserts the record into its slot.
func (m *MemoryRepo) Save(ctx context.Context, rec *document.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.store[rec.DocID] = &cp
	return nil
}
