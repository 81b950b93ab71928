package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/places-cli/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

// fullRecord is complete enough to clear every acceptance rule.
func fullRecord() model.RawRecord {
	return model.RawRecord{
		ID:          "p1",
		Name:        "Grand Palace",
		City:        "bangkok",
		Domain:      "timeout.com",
		URL:         "https://timeout.com/bangkok/grand-palace",
		Description: "The former royal residence and Bangkok's most visited landmark.",
		Address:     "Na Phra Lan Road, Phra Nakhon",
		Lat:         ptr(13.7500),
		Lng:         ptr(100.4913),
		Tags:        []string{"temple", "landmark"},
		Flags:       []string{"attractions"},
		ImageURL:    "https://media.timeout.com/grand-palace-large.jpg",
		LastUpdated: "2025-03-02",
		Phone:       "+66 2 623 5500",
	}
}

func TestAssess_CompleteRecordAccepted(t *testing.T) {
	g := NewGateAt(DefaultConfig(), fixedNow)
	accepted, metrics, details := g.Assess(fullRecord())

	assert.True(t, accepted)
	assert.GreaterOrEqual(t, metrics.Completeness, 0.7)
	assert.GreaterOrEqual(t, details.OverallScore, 0.6)
	assert.Empty(t, details.Warnings)
}

func TestAssess_MissingPhotoRejected(t *testing.T) {
	rec := fullRecord()
	rec.ImageURL = ""
	rec.Photos = nil

	g := NewGateAt(DefaultConfig(), fixedNow)
	accepted, metrics, details := g.Assess(rec)

	assert.False(t, accepted)
	assert.Zero(t, metrics.PhotoScore)
	assert.Contains(t, details.Warnings, "photo required but not provided")
	assert.Contains(t, details.Recommendations, "add photos")
}

func TestAssess_PhotoOptionalWhenDisabled(t *testing.T) {
	rec := fullRecord()
	rec.ImageURL = ""

	cfg := DefaultConfig()
	cfg.RequirePhoto = false
	g := NewGateAt(cfg, fixedNow)
	accepted, _, _ := g.Assess(rec)

	assert.True(t, accepted)
}

func TestAssess_SparseRecordRejected(t *testing.T) {
	g := NewGateAt(DefaultConfig(), fixedNow)
	accepted, metrics, details := g.Assess(model.RawRecord{ID: "p1", Name: "X"})

	assert.False(t, accepted)
	assert.Less(t, metrics.Completeness, 0.7)
	assert.NotEmpty(t, details.Warnings)
	assert.Equal(t, model.LevelUnacceptable, details.Level)
}

func TestAssess_FixedFloorIndependentOfCompleteness(t *testing.T) {
	// Lowering the completeness minimum to zero must not bypass the fixed
	// overall floor.
	cfg := DefaultConfig()
	cfg.MinCompleteness = 0
	cfg.RequirePhoto = false
	g := NewGateAt(cfg, fixedNow)

	accepted, metrics, details := g.Assess(model.RawRecord{ID: "p1", Name: "X"})
	assert.False(t, accepted)
	assert.Less(t, metrics.OverallScore(), 0.6)
	assert.Contains(t, details.Warnings, "overall quality below acceptable threshold")
}

func TestOverallScore_Weights(t *testing.T) {
	m := model.QualityMetrics{
		Completeness:      1.0,
		PhotoScore:        0.5,
		DataFreshness:     0.5,
		SourceReliability: 0.9,
		ValidationScore:   0.8,
	}
	// 0.4 + 0.15 + 0.075 + 0.09 + 0.04
	assert.InDelta(t, 0.755, m.OverallScore(), 1e-9)
}

func TestLevel_Buckets(t *testing.T) {
	for _, tc := range []struct {
		completeness float64
		level        model.QualityLevel
	}{
		{1.0, model.LevelExcellent},
		{0.85, model.LevelGood},
		{0.75, model.LevelAcceptable},
		{0.65, model.LevelPoor},
		{0.2, model.LevelUnacceptable},
	} {
		// Weights sum to 1, so uniform metrics produce that exact score.
		m := model.QualityMetrics{
			Completeness:      tc.completeness,
			PhotoScore:        tc.completeness,
			DataFreshness:     tc.completeness,
			SourceReliability: tc.completeness,
			ValidationScore:   tc.completeness,
		}
		assert.Equal(t, tc.level, m.Level(), "score %.2f", tc.completeness)
	}
}

func TestPhotoScore_Components(t *testing.T) {
	base := model.RawRecord{ImageURL: "https://cdn.example.com/pic"}
	assert.InDelta(t, 0.5, photoScore(base), 1e-9)

	withExt := model.RawRecord{ImageURL: "https://cdn.example.com/pic.jpg"}
	assert.InDelta(t, 0.6, photoScore(withExt), 1e-9)

	hires := model.RawRecord{ImageURL: "https://cdn.example.com/pic-large.jpg"}
	assert.InDelta(t, 0.7, photoScore(hires), 1e-9)

	multi := model.RawRecord{
		ImageURL: "https://cdn.example.com/pic-large.jpg",
		Photos: []model.Photo{
			{URL: "a", Width: 1200, Height: 800, AltText: "front"},
			{URL: "b"},
		},
	}
	assert.InDelta(t, 1.0, photoScore(multi), 1e-9)
}

func TestFreshness_Buckets(t *testing.T) {
	g := NewGateAt(DefaultConfig(), fixedNow)
	for _, tc := range []struct {
		marker string
		score  float64
	}{
		{"updated 2025-01-10", 0.9},
		{"2026 preview", 0.9},
		{"2024", 0.7},
		{"2023-12-31", 0.5},
		{"last checked 2019", 0.3},
		{"", 0.5},
		{"no year here", 0.5},
	} {
		rec := model.RawRecord{LastUpdated: tc.marker}
		assert.InDelta(t, tc.score, g.freshness(rec), 1e-9, "marker %q", tc.marker)
	}
}

func TestReliability_KnownAndUnknownDomains(t *testing.T) {
	g := NewGateAt(DefaultConfig(), fixedNow)

	rec := model.RawRecord{Domain: "www.timeout.com", URL: "https://timeout.com/x"}
	assert.InDelta(t, 0.95, g.reliability(rec), 1e-9)

	rec = model.RawRecord{Domain: "some-blog.example", URL: "http://some-blog.example/x"}
	assert.InDelta(t, 0.5, g.reliability(rec), 1e-9)
}

func TestReliability_ConfigOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SourceReliability = map[string]float64{"myfeed.example": 0.99}
	g := NewGateAt(cfg, fixedNow)

	rec := model.RawRecord{Domain: "myfeed.example"}
	assert.InDelta(t, 0.99, g.reliability(rec), 1e-9)

	// Overriding the table replaces it entirely.
	rec = model.RawRecord{Domain: "timeout.com"}
	assert.InDelta(t, 0.5, g.reliability(rec), 1e-9)
}

func TestValidationScore_InvalidCoordinates(t *testing.T) {
	rec := model.RawRecord{
		Name: "Valid Name",
		URL:  "https://example.com/x",
		Lat:  ptr(213.0),
		Lng:  ptr(100.5),
	}
	// Out-of-range coordinates earn no geo credit.
	assert.InDelta(t, 0.5, validationScore(rec), 1e-9)
}

func TestDetails_FieldPresence(t *testing.T) {
	g := NewGateAt(DefaultConfig(), fixedNow)
	_, _, details := g.Assess(fullRecord())

	require.NotNil(t, details.FieldPresence)
	assert.True(t, details.FieldPresence["name"])
	assert.True(t, details.FieldPresence["geo_lat"])
	assert.True(t, details.FieldPresence["phone"])
	assert.False(t, details.FieldPresence["email"])
}

func TestDetails_Recommendations(t *testing.T) {
	g := NewGateAt(DefaultConfig(), fixedNow)
	rec := model.RawRecord{
		ID:   "p1",
		Name: "Somewhere",
		City: "bangkok",
	}
	_, _, details := g.Assess(rec)
	assert.Contains(t, details.Recommendations, "improve data completeness")
	assert.Contains(t, details.Recommendations, "add photos")
}
