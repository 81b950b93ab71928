// Package searchindex writes accepted catalog records into a local SQLite
// FTS5 index and serves the flag queries used for cache warm-up.
package searchindex

import (
	"context"

	"github.com/wanderplan/places-cli/internal/model"
)

// Writer is the search-index contract the ingestion pipeline depends on.
type Writer interface {
	// Write indexes one record, replacing any previous version of the same id.
	Write(ctx context.Context, rec model.RawRecord) error
	// SearchByFlags returns up to limit records in city carrying any of the
	// given category flags.
	SearchByFlags(ctx context.Context, flags []string, city string, limit int) ([]model.RawRecord, error)
	// Optimize compacts the index. Idempotent.
	Optimize(ctx context.Context) error
	Close() error
}
