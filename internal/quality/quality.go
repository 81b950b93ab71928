// Package quality scores raw records on five independent metrics and decides
// whether they are acceptable for the catalog.
package quality

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wanderplan/places-cli/internal/model"
)

// Config holds the acceptance thresholds.
type Config struct {
	// MinCompleteness is the configurable completeness minimum.
	MinCompleteness float64
	// RequirePhoto rejects records with a zero photo score when set.
	RequirePhoto bool
	// SourceReliability overrides the built-in per-domain reliability table
	// when non-nil.
	SourceReliability map[string]float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinCompleteness: 0.7,
		RequirePhoto:    true,
	}
}

// overallFloor is the fixed minimum overall score, enforced independently of
// the configurable completeness minimum.
const overallFloor = 0.6

// defaultReliability scores known source domains; unknown domains get 0.5.
var defaultReliability = map[string]float64{
	"timeout.com":       0.9,
	"bk-magazine.com":   0.85,
	"bangkokpost.com":   0.8,
	"coconuts.co":       0.75,
	"thesmartlocal.com": 0.8,
	"tripadvisor.com":   0.85,
	"google.com":        0.9,
	"facebook.com":      0.7,
	"instagram.com":     0.6,
}

// completenessWeights covers the required fields (name, city, domain, url)
// and the important fields (description, address, coordinates, tags, flags).
var completenessWeights = []struct {
	field  string
	weight float64
}{
	{"name", 0.15},
	{"city", 0.10},
	{"domain", 0.05},
	{"url", 0.10},
	{"description", 0.20},
	{"address", 0.15},
	{"geo_lat", 0.05},
	{"geo_lng", 0.05},
	{"tags", 0.10},
	{"flags", 0.05},
}

// optionalBonus is added per present optional field, outside the 0-1
// normalization (the sum is still capped at 1).
const optionalBonus = 0.02

var optionalFields = []string{"phone", "email", "website", "hours", "price_level", "rating"}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Details carries the advisory output of an assessment. Warnings and
// recommendations never affect the accept/reject decision.
type Details struct {
	OverallScore    float64            `json:"overall_score"`
	Level           model.QualityLevel `json:"quality_level"`
	FieldPresence   map[string]bool    `json:"field_presence"`
	Warnings        []string           `json:"warnings,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// Gate assesses record quality. Zero-value thresholds mean "no minimum"; use
// DefaultConfig for production behavior.
type Gate struct {
	cfg Config
	now func() time.Time
}

// NewGate creates a quality gate.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg, now: time.Now}
}

// NewGateAt creates a gate with a fixed clock, for deterministic freshness
// scoring in tests.
func NewGateAt(cfg Config, now func() time.Time) *Gate {
	return &Gate{cfg: cfg, now: now}
}

// Assess scores the record and applies the acceptance rules: completeness at
// or above the configured minimum, overall score at or above the fixed 0.6
// floor, and a non-zero photo score when photos are required.
func (g *Gate) Assess(rec model.RawRecord) (bool, model.QualityMetrics, Details) {
	metrics := model.QualityMetrics{
		Completeness:      g.completeness(rec),
		PhotoScore:        photoScore(rec),
		DataFreshness:     g.freshness(rec),
		SourceReliability: g.reliability(rec),
		ValidationScore:   validationScore(rec),
	}

	accepted := metrics.Completeness >= g.cfg.MinCompleteness &&
		metrics.OverallScore() >= overallFloor &&
		(!g.cfg.RequirePhoto || metrics.PhotoScore > 0)

	return accepted, metrics, g.details(rec, metrics)
}

func (g *Gate) completeness(rec model.RawRecord) float64 {
	total, max := 0.0, 0.0
	for _, fw := range completenessWeights {
		max += fw.weight
		if fieldPresent(rec, fw.field) {
			total += fw.weight
		}
	}
	for _, field := range optionalFields {
		if fieldPresent(rec, field) {
			total += optionalBonus
		}
	}
	if max == 0 {
		return 0
	}
	return min(total/max, 1.0)
}

func photoScore(rec model.RawRecord) float64 {
	if len(rec.Photos) == 0 && rec.ImageURL == "" {
		return 0
	}

	score := 0.5
	if len(rec.Photos) > 1 {
		score += 0.2
	}

	if rec.ImageURL != "" {
		lower := strings.ToLower(rec.ImageURL)
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
			if strings.Contains(lower, ext) {
				score += 0.1
				break
			}
		}
		for _, hint := range []string{"large", "high", "hd", "original"} {
			if strings.Contains(lower, hint) {
				score += 0.1
				break
			}
		}
	}

	var hasDims, hasAlt bool
	for _, photo := range rec.Photos {
		if photo.Width > 0 && photo.Height > 0 {
			hasDims = true
		}
		if photo.AltText != "" {
			hasAlt = true
		}
	}
	if hasDims {
		score += 0.05
	}
	if hasAlt {
		score += 0.05
	}

	return min(score, 1.0)
}

// freshness buckets the year found in the last-updated marker relative to
// the current year. A missing marker scores 0.5: unknown, not stale.
func (g *Gate) freshness(rec model.RawRecord) float64 {
	match := yearRe.FindString(rec.LastUpdated)
	if match == "" {
		return 0.5
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0.5
	}

	switch age := g.now().Year() - year; {
	case age <= 0:
		return 0.9
	case age == 1:
		return 0.7
	case age == 2:
		return 0.5
	default:
		return 0.3
	}
}

func (g *Gate) reliability(rec model.RawRecord) float64 {
	table := g.cfg.SourceReliability
	if table == nil {
		table = defaultReliability
	}

	domain := strings.TrimPrefix(strings.ToLower(rec.Domain), "www.")
	score, ok := table[domain]
	if !ok {
		score = 0.5
	}
	if strings.HasPrefix(rec.URL, "https://") {
		score += 0.05
	}
	return min(score, 1.0)
}

func validationScore(rec model.RawRecord) float64 {
	score := 0.0

	if name := strings.TrimSpace(rec.Name); name != "" {
		score += 0.2
		if len(rec.Name) > 5 {
			score += 0.1
		}
	}
	if validURL(rec.URL) {
		score += 0.2
	}
	if rec.HasGeo() && *rec.Lat >= -90 && *rec.Lat <= 90 && *rec.Lng >= -180 && *rec.Lng <= 180 {
		score += 0.2
	}
	if len(strings.TrimSpace(rec.Address)) > 10 {
		score += 0.1
	}
	if len(rec.Tags) > 0 {
		score += 0.1
	}
	if len(strings.TrimSpace(rec.Description)) > 20 {
		score += 0.1
	}

	return min(score, 1.0)
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (g *Gate) details(rec model.RawRecord, metrics model.QualityMetrics) Details {
	d := Details{
		OverallScore:  metrics.OverallScore(),
		Level:         metrics.Level(),
		FieldPresence: make(map[string]bool, len(completenessWeights)+len(optionalFields)),
	}

	for _, fw := range completenessWeights {
		d.FieldPresence[fw.field] = fieldPresent(rec, fw.field)
	}
	for _, field := range optionalFields {
		d.FieldPresence[field] = fieldPresent(rec, field)
	}

	if metrics.Completeness < 0.8 {
		d.Recommendations = append(d.Recommendations, "improve data completeness")
	}
	if metrics.PhotoScore == 0 {
		d.Recommendations = append(d.Recommendations, "add photos")
	} else if metrics.PhotoScore < 0.5 {
		d.Recommendations = append(d.Recommendations, "improve photo quality")
	}
	if metrics.DataFreshness < 0.7 {
		d.Recommendations = append(d.Recommendations, "update data freshness")
	}

	if metrics.Completeness < g.cfg.MinCompleteness {
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"completeness below threshold (%.3f < %.3f)", metrics.Completeness, g.cfg.MinCompleteness))
	}
	if g.cfg.RequirePhoto && metrics.PhotoScore == 0 {
		d.Warnings = append(d.Warnings, "photo required but not provided")
	}
	if d.OverallScore < overallFloor {
		d.Warnings = append(d.Warnings, "overall quality below acceptable threshold")
	}

	return d
}

func fieldPresent(rec model.RawRecord, field string) bool {
	switch field {
	case "name":
		return strings.TrimSpace(rec.Name) != ""
	case "city":
		return strings.TrimSpace(rec.City) != ""
	case "domain":
		return strings.TrimSpace(rec.Domain) != ""
	case "url":
		return strings.TrimSpace(rec.URL) != ""
	case "description":
		return strings.TrimSpace(rec.Description) != "" || strings.TrimSpace(rec.FullDescription) != ""
	case "address":
		return strings.TrimSpace(rec.Address) != ""
	case "geo_lat":
		return rec.Lat != nil
	case "geo_lng":
		return rec.Lng != nil
	case "tags":
		return len(rec.Tags) > 0
	case "flags":
		return len(rec.Flags) > 0
	case "phone":
		return strings.TrimSpace(rec.Phone) != ""
	case "email":
		return strings.TrimSpace(rec.Email) != ""
	case "website":
		return strings.TrimSpace(rec.Website) != ""
	case "hours":
		return strings.TrimSpace(rec.Hours) != ""
	case "price_level":
		return rec.PriceLevel != nil
	case "rating":
		return rec.Rating != nil
	default:
		return false
	}
}
