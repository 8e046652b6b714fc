// Package completiontest provides a behaviour suite shared by every Index
// implementation.
package completiontest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evslot/core/completion"
)

// Factory returns an empty index. The suite closes it.
type Factory func(t *testing.T) completion.Index

// Run executes the suite against indexes produced by newIndex.
func Run(t *testing.T, newIndex Factory) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 123456000, time.UTC)

	t.Run("SetGet", func(t *testing.T) {
		idx := open(t, newIndex)
		ctx := context.Background()
		require.NoError(t, idx.Set(ctx, "XXXXX", at))
		got, err := idx.Get(ctx, "XXXXX")
		require.NoError(t, err)
		assert.True(t, got.Equal(at), "got %v want %v", got, at)
	})

	t.Run("GetMissing", func(t *testing.T) {
		idx := open(t, newIndex)
		_, err := idx.Get(context.Background(), "XXXXX")
		assert.ErrorIs(t, err, completion.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		idx := open(t, newIndex)
		ctx := context.Background()
		require.NoError(t, idx.Set(ctx, "A", at))
		require.NoError(t, idx.Set(ctx, "A", at.Add(time.Hour)))
		got, err := idx.Get(ctx, "A")
		require.NoError(t, err)
		assert.True(t, got.Equal(at.Add(time.Hour)))
	})

	t.Run("Delete", func(t *testing.T) {
		idx := open(t, newIndex)
		ctx := context.Background()
		require.NoError(t, idx.Set(ctx, "A", at))
		require.NoError(t, idx.Delete(ctx, "A"))
		_, err := idx.Get(ctx, "A")
		assert.ErrorIs(t, err, completion.ErrNotFound)
		assert.NoError(t, idx.Delete(ctx, "A"), "deleting a missing plate")
	})

	t.Run("List", func(t *testing.T) {
		idx := open(t, newIndex)
		ctx := context.Background()
		require.NoError(t, idx.Set(ctx, "B", at.Add(time.Minute)))
		require.NoError(t, idx.Set(ctx, "A", at))
		entries, err := idx.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		got := map[string]time.Time{}
		for _, e := range entries {
			got[e.Plate] = e.At
		}
		assert.True(t, got["A"].Equal(at))
		assert.True(t, got["B"].Equal(at.Add(time.Minute)))
	})
}

func open(t *testing.T, newIndex Factory) completion.Index {
	idx := newIndex(t)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}
