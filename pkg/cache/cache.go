// Package cache writes accepted catalog records into the shared cache layer
// keyed by city and category flag.
package cache

import (
	"context"
	"strings"
	"time"
)

// Writer is the cache contract the ingestion pipeline depends on.
type Writer interface {
	// Put stores value (JSON-encoded) under key with the given TTL.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get fetches the raw bytes for key; ok is false on a miss.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Close() error
}

// PlacesKey builds the canonical cache key for a city/flag listing.
func PlacesKey(city, flag string) string {
	return "places:" + strings.ToLower(strings.TrimSpace(city)) + ":" + strings.ToLower(strings.TrimSpace(flag))
}
