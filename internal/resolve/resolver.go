// Package resolve decides, for each incoming candidate, whether it duplicates
// a previously accepted record. Four strategies run in fixed order with the
// first hit winning: exact identity key, fuzzy name similarity, address hash
// with a similarity double check, and planar geo proximity.
package resolve

import (
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/wanderplan/places-cli/internal/model"
	"github.com/wanderplan/places-cli/internal/normalize"
)

// Config holds the resolver thresholds.
type Config struct {
	// FuzzyThreshold is the minimum 0-100 name-similarity ratio for a fuzzy
	// match.
	FuzzyThreshold float64
	// AddressSimilarity is the minimum 0-100 ratio two normalized addresses
	// must reach after an address-hash hit, guarding against collisions on
	// heavily stripped addresses.
	AddressSimilarity float64
	// GeoTolerance is the maximum planar distance in raw degrees for a geo
	// match. The default 0.001 is roughly 100m at Bangkok latitudes.
	GeoTolerance float64
}

// DefaultConfig returns the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:    86,
		AddressSimilarity: 80,
		GeoTolerance:      0.001,
	}
}

// Match identifies the accepted record a candidate duplicates and the
// strategy that found it.
type Match struct {
	ID       string
	Strategy model.MatchStrategy
}

// Resolver runs the duplicate-detection strategy chain against a
// CatalogIndex. Safe for concurrent use: the whole resolve-then-insert
// sequence runs under one lock so two near-simultaneous duplicates cannot
// both be accepted.
type Resolver struct {
	cfg Config
	sim SimilarityFn

	mu    sync.Mutex
	index *CatalogIndex
	stats map[model.MatchStrategy]int
}

// New creates a resolver with an empty catalog index. A nil sim falls back to
// LevenshteinRatio.
func New(cfg Config, sim SimilarityFn) *Resolver {
	if sim == nil {
		sim = LevenshteinRatio
	}
	return &Resolver{
		cfg:   cfg,
		sim:   sim,
		index: NewCatalogIndex(),
		stats: make(map[model.MatchStrategy]int),
	}
}

// Resolve checks the candidate against the index. A nil return means the
// candidate is unique; it has been added to the index as a side effect.
// A non-nil Match means duplicate and the index is unchanged.
func (r *Resolver) Resolve(c normalize.Candidate) *Match {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, strategy := range []func(normalize.Candidate) *Match{
		r.matchIdentity,
		r.matchFuzzyName,
		r.matchAddress,
		r.matchGeo,
	} {
		if m := strategy(c); m != nil {
			r.stats[m.Strategy]++
			zap.L().Debug("resolve: duplicate",
				zap.String("id", c.ID),
				zap.String("matched", m.ID),
				zap.String("strategy", string(m.Strategy)),
			)
			return m
		}
	}

	r.index.Add(c)
	return nil
}

// matchIdentity is the exact identity-key lookup.
func (r *Resolver) matchIdentity(c normalize.Candidate) *Match {
	if id, ok := r.index.ByIdentity(c.IdentityKey); ok {
		return &Match{ID: id, Strategy: model.MatchIdentity}
	}
	return nil
}

// matchFuzzyName scans the candidate's name-initial bucket for the
// highest-scoring name at or above the threshold. The first candidate to
// reach the best ratio, in insertion order, wins ties.
func (r *Resolver) matchFuzzyName(c normalize.Candidate) *Match {
	if c.NormalizedName == "" {
		return nil
	}

	var bestID string
	bestRatio := 0.0
	for _, id := range r.index.ByInitial(c.NormalizedName) {
		other, ok := r.index.Candidate(id)
		if !ok || other.NormalizedName == "" {
			continue
		}
		ratio := r.sim(c.NormalizedName, other.NormalizedName)
		if ratio >= r.cfg.FuzzyThreshold && ratio > bestRatio {
			bestRatio = ratio
			bestID = id
		}
	}

	if bestID == "" {
		return nil
	}
	return &Match{ID: bestID, Strategy: model.MatchFuzzyName}
}

// matchAddress looks for an address-hash hit, double-checked with a
// normalized-address similarity ratio.
func (r *Resolver) matchAddress(c normalize.Candidate) *Match {
	if c.AddressHash == "" {
		return nil
	}

	for _, id := range r.index.ByAddressHash(c.AddressHash) {
		other, ok := r.index.Candidate(id)
		if !ok || other.NormalizedAddress == "" {
			continue
		}
		if r.sim(c.NormalizedAddress, other.NormalizedAddress) >= r.cfg.AddressSimilarity {
			return &Match{ID: id, Strategy: model.MatchAddress}
		}
	}
	return nil
}

// matchGeo finds the closest accepted candidate within the tolerance.
// Distance is planar Euclidean in raw degrees, a documented simplification
// that is accurate enough at the ~100m tolerances involved.
func (r *Resolver) matchGeo(c normalize.Candidate) *Match {
	if !c.HasGeo() {
		return nil
	}
	point := geom.Coord{*c.Lng, *c.Lat}

	var bestID string
	bestDistance := r.cfg.GeoTolerance
	for _, other := range r.index.All() {
		if !other.HasGeo() {
			continue
		}
		distance := xy.Distance(point, geom.Coord{*other.Lng, *other.Lat})
		if distance <= bestDistance && (bestID == "" || distance < bestDistance) {
			bestDistance = distance
			bestID = other.ID
		}
	}

	if bestID == "" {
		return nil
	}
	return &Match{ID: bestID, Strategy: model.MatchGeo}
}

// Stats returns a copy of the per-strategy match counters.
func (r *Resolver) Stats() map[model.MatchStrategy]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.MatchStrategy]int, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

// Accepted is the number of unique candidates in the index.
func (r *Resolver) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Len()
}

// Reset clears the index and the strategy counters.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index.Reset()
	r.stats = make(map[model.MatchStrategy]int)
}
