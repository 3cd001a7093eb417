package repository

import (
	"context"
	"testing"
	"time"

	"github.com/quillsync/quillsync/internal/document"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoSaveGet(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	_, err := r.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	rec := &document.Record{DocID: "d1", OwnerID: "alice", Title: "t", Version: 1, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, r.Save(ctx, rec))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "t", got.Title)
	require.Equal(t, int64(1), got.Version)

	// Save is an upsert; later versions overwrite the slot
	rec2 := *rec
	rec2.Title = "t2"
	rec2.Version = 2
	require.NoError(t, r.Save(ctx, &rec2))
	got, err = r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "t2", got.Title)
	require.Equal(t, int64(2), got.Version)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	require.NoError(t, r.Save(ctx, &document.Record{DocID: "d1", Title: "orig"}))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "orig", again.Title)
}
