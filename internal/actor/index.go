package actor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quillsync/quillsync/internal/apperrors"
	"github.com/quillsync/quillsync/internal/document"
	"github.com/quillsync/quillsync/internal/index"
	idxrepo "github.com/quillsync/quillsync/internal/index/repository"
)

// DocumentWriter is what the index side needs from the document side:
// create/update forwards end up here.
type DocumentWriter interface {
	Write(ctx context.Context, docID, userID string, p document.Patch) (*document.Record, error)
}

// IndexStore is the durable slot an index actor reads and writes.
type IndexStore interface {
	Get(ctx context.Context, userID string) (*index.Snapshot, error)
	Save(ctx context.Context, snap *index.Snapshot) error
}

// IndexActor owns one user's catalog of document metadata. The actor pins
// itself to the first user id it observes; per-user key derivation already
// guarantees the match, the pin is defense in depth.
type IndexActor struct {
	userID string
	store  IndexStore
	reg    *IndexRegistry

	mu     sync.Mutex
	loaded bool
	pinned string
	snap   *index.Snapshot
}

// load hydrates the snapshot from storage once. Caller holds mu.
func (a *IndexActor) load(ctx context.Context) error {
	if a.loaded {
		return nil
	}
	s, err := a.store.Get(ctx, a.userID)
	if err != nil {
		if !errors.Is(err, idxrepo.ErrNotFound) {
			return apperrors.Internal("load index", err)
		}
		s = index.NewSnapshot(a.userID)
	} else {
		a.pinned = s.UserID
	}
	a.snap = s
	a.loaded = true
	return nil
}

// checkPin binds the actor on first use and rejects later mismatches.
// Caller holds mu.
func (a *IndexActor) checkPin(userID string) error {
	if a.pinned == "" {
		a.pinned = userID
		return nil
	}
	if a.pinned != userID {
		return apperrors.Forbidden("index is bound to a different user")
	}
	return nil
}

// List returns the catalog sorted by updatedAt descending plus the aggregate
// tag vocabulary.
func (a *IndexActor) List(ctx context.Context, userID string) ([]document.Metadata, []string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(ctx); err != nil {
		return nil, nil, err
	}
	if err := a.checkPin(userID); err != nil {
		return nil, nil, err
	}

	entries := make([]document.Metadata, 0, len(a.snap.Entries))
	tagLists := make([][]string, 0, len(a.snap.Entries))
	for _, m := range a.snap.Entries {
		entries = append(entries, m)
		tagLists = append(tagLists, m.Tags)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].DocID < entries[j].DocID
		}
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, document.TagVocabulary(tagLists, a.reg.limits), nil
}

// Create generates a document id, runs the initialize write on the document
// actor and upserts the returned metadata. Document actor errors pass
// through unchanged.
func (a *IndexActor) Create(ctx context.Context, userID string, p document.Patch) (*document.Record, error) {
	if err := a.pinOnly(ctx, userID); err != nil {
		return nil, err
	}
	docID := uuid.NewString()
	p.Initialize = true
	rec, err := a.reg.docs.Write(ctx, docID, userID, p)
	if err != nil {
		return nil, err
	}
	if err := a.upsert(ctx, rec.Metadata()); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update forwards the write to the document actor and upserts the returned
// metadata. Document actor errors pass through unchanged.
func (a *IndexActor) Update(ctx context.Context, userID, docID string, p document.Patch) (*document.Record, error) {
	if err := a.pinOnly(ctx, userID); err != nil {
		return nil, err
	}
	rec, err := a.reg.docs.Write(ctx, docID, userID, p)
	if err != nil {
		return nil, err
	}
	if err := a.upsert(ctx, rec.Metadata()); err != nil {
		return nil, err
	}
	return rec, nil
}

// SyncFromDocument is the push target for document-actor persistence.
// Idempotent: the same or an older version simply overwrites the entry.
func (a *IndexActor) SyncFromDocument(ctx context.Context, rec *document.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(ctx); err != nil {
		return err
	}
	if err := a.checkPin(rec.OwnerID); err != nil {
		return err
	}
	return a.upsertLocked(ctx, rec.Metadata())
}

// pinOnly runs the load+pin check without holding mu across the cross-actor
// call that follows; the document write re-enters this actor through
// SyncFromDocument.
func (a *IndexActor) pinOnly(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(ctx); err != nil {
		return err
	}
	return a.checkPin(userID)
}

func (a *IndexActor) upsert(ctx context.Context, m document.Metadata) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(ctx); err != nil {
		return err
	}
	return a.upsertLocked(ctx, m)
}

// upsertLocked writes the projection into the snapshot and persists the
// slot. Caller holds mu.
func (a *IndexActor) upsertLocked(ctx context.Context, m document.Metadata) error {
	a.snap.Entries[m.DocID] = m
	a.snap.UpdatedAt = time.Now().UTC()
	if err := a.store.Save(ctx, a.snap); err != nil {
		return apperrors.Internal("persist index", err)
	}
	return nil
}

// IndexRegistry hands out one actor per user id. It is the IndexSyncer the
// document registry pushes metadata through.
type IndexRegistry struct {
	store  IndexStore
	docs   DocumentWriter
	limits document.TagLimits

	mu     sync.Mutex
	actors map[string]*IndexActor
}

func NewIndexRegistry(store IndexStore, docs DocumentWriter, limits document.TagLimits) *IndexRegistry {
	return &IndexRegistry{
		store:  store,
		docs:   docs,
		limits: limits,
		actors: make(map[string]*IndexActor),
	}
}

func (r *IndexRegistry) actorFor(userID string) *IndexActor {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[userID]
	if !ok {
		a = &IndexActor{userID: userID, store: r.store, reg: r}
		r.actors[userID] = a
	}
	return a
}

func (r *IndexRegistry) List(ctx context.Context, userID string) ([]document.Metadata, []string, error) {
	return r.actorFor(userID).List(ctx, userID)
}

func (r *IndexRegistry) Create(ctx context.Context, userID string, p document.Patch) (*document.Record, error) {
	return r.actorFor(userID).Create(ctx, userID, p)
}

func (r *IndexRegistry) Update(ctx context.Context, userID, docID string, p document.Patch) (*document.Record, error) {
	return r.actorFor(userID).Update(ctx, userID, docID, p)
}

func (r *IndexRegistry) SyncFromDocument(ctx context.Context, rec *document.Record) error {
	return r.actorFor(rec.OwnerID).SyncFromDocument(ctx, rec)
}
