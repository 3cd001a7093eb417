package repository

import (
	"context"
	"testing"
	"time"

	"github.com/quillsync/quillsync/internal/document"
	"github.com/quillsync/quillsync/internal/index"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoSaveGet(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	_, err := r.Get(ctx, "alice")
	require.ErrorIs(t, err, ErrNotFound)

	snap := index.NewSnapshot("alice")
	snap.Entries["d1"] = document.Metadata{DocID: "d1", Title: "t", Version: 1, UpdatedAt: time.Now()}
	require.NoError(t, r.Save(ctx, snap))

	got, err := r.Get(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	require.Equal(t, "t", got.Entries["d1"].Title)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	snap := index.NewSnapshot("alice")
	snap.Entries["d1"] = document.Metadata{DocID: "d1", Title: "orig"}
	require.NoError(t, r.Save(ctx, snap))

	got, err := r.Get(ctx, "alice")
	require.NoError(t, err)
	got.Entries["d1"] = document.Metadata{DocID: "d1", Title: "mutated"}

	again, err := r.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "orig", again.Entries["d1"].Title)
}
