package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/places-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := model.RawRecord{ID: "p1", Name: "Grand Palace", City: "Bangkok", Tags: []string{"temple"}}
	require.NoError(t, s.SaveRecord(ctx, rec, model.QualityMetrics{Completeness: 0.9}))

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Grand Palace", got.Name)
	assert.Equal(t, []string{"temple"}, got.Tags)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetRecord(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := model.RawRecord{ID: "p1", Name: "Old Name", City: "bangkok"}
	require.NoError(t, s.SaveRecord(ctx, rec, model.QualityMetrics{}))

	rec.Name = "New Name"
	require.NoError(t, s.SaveRecord(ctx, rec, model.QualityMetrics{}))

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ListByCityOrdersByScore(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx,
		model.RawRecord{ID: "low", Name: "Low", City: "Bangkok"},
		model.QualityMetrics{Completeness: 0.5}))
	require.NoError(t, s.SaveRecord(ctx,
		model.RawRecord{ID: "high", Name: "High", City: "bangkok"},
		model.QualityMetrics{Completeness: 1.0}))
	require.NoError(t, s.SaveRecord(ctx,
		model.RawRecord{ID: "other", Name: "Other", City: "chiangmai"},
		model.QualityMetrics{Completeness: 1.0}))

	records, err := s.ListByCity(ctx, "BANGKOK", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "high", records[0].ID)
	assert.Equal(t, "low", records[1].ID)
}
