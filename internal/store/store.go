// Package store persists accepted canonical records so the catalog survives
// restarts. The in-memory CatalogIndex is authoritative during a run; the
// store is a durability layer behind it.
package store

import (
	"context"

	"github.com/wanderplan/places-cli/internal/model"
)

// Store defines the persistence interface for the catalog.
type Store interface {
	// SaveRecord upserts an accepted record with its quality metrics.
	SaveRecord(ctx context.Context, rec model.RawRecord, metrics model.QualityMetrics) error
	GetRecord(ctx context.Context, id string) (*model.RawRecord, error)
	ListByCity(ctx context.Context, city string, limit int) ([]model.RawRecord, error)
	Count(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
