package searchindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/places-cli/internal/model"
)

func newTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := NewSQLite(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestWrite_AndSearchByFlags(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Write(ctx, model.RawRecord{
		ID: "p1", Name: "Grand Palace", City: "Bangkok",
		Flags: []string{"attractions", "cultural_heritage"},
	}))
	require.NoError(t, idx.Write(ctx, model.RawRecord{
		ID: "p2", Name: "Siam Paragon", City: "bangkok",
		Flags: []string{"shopping"},
	}))
	require.NoError(t, idx.Write(ctx, model.RawRecord{
		ID: "p3", Name: "Nimman Road", City: "chiangmai",
		Flags: []string{"shopping"},
	}))

	got, err := idx.SearchByFlags(ctx, []string{"shopping"}, "bangkok", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	// Multiple flags OR together.
	got, err = idx.SearchByFlags(ctx, []string{"shopping", "attractions"}, "bangkok", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Empty city matches everything.
	got, err = idx.SearchByFlags(ctx, []string{"shopping"}, "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWrite_ReplacesExisting(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	rec := model.RawRecord{ID: "p1", Name: "Old", City: "bangkok", Flags: []string{"attractions"}}
	require.NoError(t, idx.Write(ctx, rec))

	rec.Flags = []string{"shopping"}
	require.NoError(t, idx.Write(ctx, rec))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := idx.SearchByFlags(ctx, []string{"attractions"}, "bangkok", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "stale fts entries must be gone")

	got, err = idx.SearchByFlags(ctx, []string{"shopping"}, "bangkok", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchByFlags_Limit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, idx.Write(ctx, model.RawRecord{
			ID: id, Name: "Venue " + id, City: "bangkok", Flags: []string{"food_dining"},
		}))
	}

	got, err := idx.SearchByFlags(ctx, []string{"food_dining"}, "bangkok", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearchByFlags_NoFlags(t *testing.T) {
	idx := newTestIndex(t)
	got, err := idx.SearchByFlags(context.Background(), nil, "bangkok", 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOptimize_Idempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Write(ctx, model.RawRecord{ID: "p1", Name: "X", City: "bangkok"}))
	require.NoError(t, idx.Optimize(ctx))
	require.NoError(t, idx.Optimize(ctx))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
