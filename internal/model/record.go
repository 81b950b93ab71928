// Package model defines the shared data types flowing through the ingestion
// pipeline: raw scraped records, per-record results, and running statistics.
package model

import (
	"time"
)

// Photo is a single photo attached to a scraped record.
type Photo struct {
	URL     string `json:"url"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

// RawRecord is a place or event record as produced by a source extractor.
// The pipeline treats it as read-only input: every stage reads it and builds
// new structures, it is never mutated in place. Optional scalar fields use
// pointers so "unset" is distinguishable from a zero value.
type RawRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	City   string `json:"city"`
	Domain string `json:"domain"`
	URL    string `json:"url"`

	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"geo_lat,omitempty"`
	Lng     *float64 `json:"geo_lng,omitempty"`

	Description     string `json:"description,omitempty"`
	FullDescription string `json:"full_description,omitempty"`

	Tags  []string `json:"tags,omitempty"`
	Flags []string `json:"flags,omitempty"`

	Photos   []Photo `json:"photos,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`

	// LastUpdated is a free-form date marker from the source page; the
	// quality gate only extracts a calendar year from it.
	LastUpdated string   `json:"last_updated,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`

	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	Hours   string `json:"hours,omitempty"`

	// Event fields, used by the batch cluster merger.
	Venue string     `json:"venue,omitempty"`
	Start *time.Time `json:"start,omitempty"`

	Source    string    `json:"source,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`

	// Attrs carries source-specific custom attributes. Boolean attrs are
	// OR-combined when duplicate clusters are merged.
	Attrs map[string]any `json:"attrs,omitempty"`

	// Provenance, populated by the cluster merger on its output records.
	MergedIDs []string `json:"merged_ids,omitempty"`
	Sources   []string `json:"sources,omitempty"`
}

// HasGeo reports whether both coordinates are present.
func (r *RawRecord) HasGeo() bool {
	return r.Lat != nil && r.Lng != nil
}

// BestDescription returns the full description when present, falling back to
// the short one.
func (r *RawRecord) BestDescription() string {
	if r.FullDescription != "" {
		return r.FullDescription
	}
	return r.Description
}
