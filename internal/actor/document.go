package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quillsync/quillsync/internal/apperrors"
	"github.com/quillsync/quillsync/internal/document"
	docrepo "github.com/quillsync/quillsync/internal/document/repository"
	"github.com/quillsync/quillsync/pkg/logger"
	"github.com/quillsync/quillsync/pkg/metrics"
)

// DocumentStore is the durable slot a document actor reads and writes.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Record, error)
	Save(ctx context.Context, rec *document.Record) error
}

// IndexSyncer receives metadata pushes after a record persists.
type IndexSyncer interface {
	SyncFromDocument(ctx context.Context, rec *document.Record) error
}

// DocumentActor is the sole writer of one document's canonical record and
// the sole host of its realtime session set. State is guarded by mu; the
// persistence discipline (one storage write in flight, dirty-flag recheck)
// lives in flush.
type DocumentActor struct {
	docID string
	store DocumentStore
	reg   *DocumentRegistry

	mu     sync.Mutex
	loaded bool
	rec    *document.Record // nil when loaded and absent
	dirty  bool

	flushMu sync.Mutex

	connMu   sync.Mutex
	sessions map[*session]struct{}
}

// load hydrates the record from storage once. Caller holds mu.
func (a *DocumentActor) load(ctx context.Context) error {
	if a.loaded {
		return nil
	}
	rec, err := a.store.Get(ctx, a.docID)
	if err != nil {
		if errors.Is(err, docrepo.ErrNotFound) {
			a.rec = nil
			a.loaded = true
			return nil
		}
		return apperrors.Internal("load document", err)
	}
	a.rec = rec
	a.loaded = true
	return nil
}

// Read returns the record, or NotFound/Forbidden.
func (a *DocumentActor) Read(ctx context.Context, userID string) (*document.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	if a.rec == nil {
		return nil, apperrors.NotFound("document does not exist")
	}
	if a.rec.OwnerID != userID {
		return nil, apperrors.Forbidden("not the document owner")
	}
	return a.rec, nil
}

// Write applies a patch and persists before returning. The first write of a
// document must carry Initialize; the caller becomes the owner. Later writes
// require the caller to be the owner.
func (a *DocumentActor) Write(ctx context.Context, userID string, p document.Patch) (*document.Record, error) {
	a.mu.Lock()
	if err := a.load(ctx); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	now := time.Now().UTC()
	var next *document.Record
	if a.rec == nil {
		if !p.Initialize {
			a.mu.Unlock()
			return nil, apperrors.NotFound("document does not exist")
		}
		next = document.New(a.docID, userID, p, a.reg.limits, now)
	} else {
		if a.rec.OwnerID != userID {
			a.mu.Unlock()
			return nil, apperrors.Forbidden("not the document owner")
		}
		next = a.rec.Merge(p, a.reg.limits, now)
	}
	a.rec = next
	a.dirty = true
	a.mu.Unlock()

	if err := a.flush(ctx); err != nil {
		return nil, apperrors.Internal("persist document", err)
	}
	metrics.DocumentWrites.Inc()
	return next, nil
}

// flush drains the dirty flag. Only one storage write per document is ever
// in flight: a second writer blocks on flushMu, then re-checks the flag,
// which may have been set again while it waited, and loops until clean. A
// write that lands during a Save is therefore never dropped.
func (a *DocumentActor) flush(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()
	for {
		a.mu.Lock()
		if !a.dirty || a.rec == nil {
			a.mu.Unlock()
			return nil
		}
		a.dirty = false
		snap := a.rec
		a.mu.Unlock()

		if err := a.store.Save(ctx, snap); err != nil {
			a.mu.Lock()
			a.dirty = true
			a.mu.Unlock()
			return err
		}
		// The index is allowed to lag: a failed push never rolls back or
		// fails the document write.
		if err := a.reg.syncIndex(ctx, snap); err != nil {
			logger.Warnf("document %s: index push to owner %s failed: %v", a.docID, snap.OwnerID, err)
			metrics.IndexPushFailures.Inc()
		}
	}
}

// flushForce persists the current record even when the dirty flag is clear.
// Used on last disconnect to close the unflushed-last-write window.
func (a *DocumentActor) flushForce(ctx context.Context) error {
	a.mu.Lock()
	if a.rec != nil {
		a.dirty = true
	}
	a.mu.Unlock()
	return a.flush(ctx)
}

// DocumentRegistry hands out one actor per document id.
type DocumentRegistry struct {
	store  DocumentStore
	limits document.TagLimits

	mu     sync.Mutex
	actors map[string]*DocumentActor
	index  IndexSyncer
}

func NewDocumentRegistry(store DocumentStore, limits document.TagLimits) *DocumentRegistry {
	return &DocumentRegistry{
		store:  store,
		limits: limits,
		actors: make(map[string]*DocumentActor),
	}
}

// BindIndex wires in the index side once both registries exist.
func (r *DocumentRegistry) BindIndex(idx IndexSyncer) {
	r.mu.Lock()
	r.index = idx
	r.mu.Unlock()
}

func (r *DocumentRegistry) syncIndex(ctx context.Context, rec *document.Record) error {
	r.mu.Lock()
	idx := r.index
	r.mu.Unlock()
	if idx == nil {
		return nil
	}
	return idx.SyncFromDocument(ctx, rec)
}

func (r *DocumentRegistry) actorFor(docID string) *DocumentActor {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[docID]
	if !ok {
		a = &DocumentActor{
			docID:    docID,
			store:    r.store,
			reg:      r,
			sessions: make(map[*session]struct{}),
		}
		r.actors[docID] = a
	}
	return a
}

func (r *DocumentRegistry) Read(ctx context.Context, docID, userID string) (*document.Record, error) {
	return r.actorFor(docID).Read(ctx, userID)
}

func (r *DocumentRegistry) Write(ctx context.Context, docID, userID string, p document.Patch) (*document.Record, error) {
	return r.actorFor(docID).Write(ctx, userID, p)
}
