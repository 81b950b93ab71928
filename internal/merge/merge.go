// Package merge collapses a batch of raw records into one canonical record
// per duplicate cluster. Records are grouped by identity key, group
// representatives are fuzzily unioned (same day, same venue, similar title)
// through a disjoint set so clustering is transitive, and each final cluster
// is merged with deterministic field rules.
package merge

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wanderplan/places-cli/internal/model"
	"github.com/wanderplan/places-cli/internal/normalize"
	"github.com/wanderplan/places-cli/internal/resolve"
)

// Config holds the cluster-merge tuning.
type Config struct {
	// TitleThreshold is the minimum 0-100 title-similarity ratio for two
	// group representatives to union.
	TitleThreshold float64
	// SourcePriority ranks trusted source names, most trusted first.
	// Unknown sources rank after all listed ones.
	SourcePriority []string
}

// DefaultConfig returns the production merge settings.
func DefaultConfig() Config {
	return Config{
		TitleThreshold: 90,
		SourcePriority: []string{"timeout_bkk", "bk_magazine"},
	}
}

// Merger performs batch cluster merges.
type Merger struct {
	cfg      Config
	sim      resolve.SimilarityFn
	verifier ImageVerifier
	rank     map[string]int
}

// New creates a merger. A nil sim falls back to LevenshteinRatio and a nil
// verifier to NoopVerifier.
func New(cfg Config, sim resolve.SimilarityFn, verifier ImageVerifier) *Merger {
	if sim == nil {
		sim = resolve.LevenshteinRatio
	}
	if verifier == nil {
		verifier = NoopVerifier{}
	}
	rank := make(map[string]int, len(cfg.SourcePriority))
	for i, src := range cfg.SourcePriority {
		rank[strings.ToLower(src)] = i
	}
	return &Merger{cfg: cfg, sim: sim, verifier: verifier, rank: rank}
}

// Merge returns one record per duplicate cluster. Output order is not
// guaranteed to follow input order; every input id appears in exactly one
// output record's MergedIDs.
func (m *Merger) Merge(ctx context.Context, records []model.RawRecord) []model.RawRecord {
	if len(records) == 0 {
		return nil
	}

	// Identity-key groups, in first-seen order.
	var keys []string
	groups := make(map[string][]model.RawRecord)
	for _, rec := range records {
		key := normalize.NewCandidate(rec).IdentityKey
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], rec)
	}

	// Fuzzy union of group representatives. The resulting closure is
	// transitive: A~B and B~C merge A, B and C together.
	reps := make([]model.RawRecord, len(keys))
	titles := make([]string, len(keys))
	for i, key := range keys {
		reps[i] = groups[key][0]
		titles[i] = normText(reps[i].Name)
	}

	uf := newUnionFind(len(reps))
	for i := 0; i < len(reps); i++ {
		for j := i + 1; j < len(reps); j++ {
			if !sameDay(reps[i].Start, reps[j].Start) {
				continue
			}
			if !sameVenue(reps[i].Venue, reps[j].Venue) {
				continue
			}
			if m.sim(titles[i], titles[j]) >= m.cfg.TitleThreshold {
				uf.union(i, j)
			}
		}
	}

	// Collect member group keys per final cluster, preserving rep order.
	clusterOf := make(map[int][]string)
	var roots []int
	for i, key := range keys {
		root := uf.find(i)
		if _, ok := clusterOf[root]; !ok {
			roots = append(roots, root)
		}
		clusterOf[root] = append(clusterOf[root], key)
	}

	now := time.Now().UTC()
	merged := make([]model.RawRecord, 0, len(roots))
	for _, root := range roots {
		var bucket []model.RawRecord
		for _, key := range clusterOf[root] {
			bucket = append(bucket, groups[key]...)
		}
		merged = append(merged, m.mergeCluster(ctx, bucket, now))
	}

	zap.L().Info("merge: batch collapsed",
		zap.Int("input", len(records)),
		zap.Int("identity_groups", len(keys)),
		zap.Int("clusters", len(merged)),
	)
	return merged
}

// mergeCluster builds the canonical record for one cluster: primary record
// enriched with the best fields of the others.
func (m *Merger) mergeCluster(ctx context.Context, bucket []model.RawRecord, now time.Time) model.RawRecord {
	primary := m.pickPrimary(bucket, now)
	out := primary

	if desc := pickDescription(bucket); desc != "" {
		out.FullDescription = desc
	}
	if img := m.pickImage(ctx, bucket); img != "" {
		out.ImageURL = img
	}

	tagSets := make([][]string, 0, len(bucket))
	flagSets := make([][]string, 0, len(bucket))
	sources := make([]string, 0, len(bucket))
	ids := make([]string, 0, len(bucket))
	for _, rec := range bucket {
		tagSets = append(tagSets, rec.Tags)
		flagSets = append(flagSets, rec.Flags)
		sources = append(sources, rec.Source)
		ids = append(ids, rec.ID)
	}
	out.Tags = orderedUnionFolded(tagSets...)
	out.Flags = orderedUnionFolded(flagSets...)
	out.Sources = orderedUnionFolded(sources)
	out.MergedIDs = orderedUnion(ids)

	// OR-combine boolean custom attributes across the cluster.
	var attrs map[string]any
	if len(primary.Attrs) > 0 {
		attrs = make(map[string]any, len(primary.Attrs))
		for k, v := range primary.Attrs {
			attrs[k] = v
		}
	}
	for _, rec := range bucket {
		for k, v := range rec.Attrs {
			b, ok := v.(bool)
			if !ok {
				continue
			}
			if attrs == nil {
				attrs = make(map[string]any)
			}
			prev, _ := attrs[k].(bool)
			attrs[k] = prev || b
		}
	}
	out.Attrs = attrs

	// Most recent fetch time across the cluster.
	latest := out.FetchedAt
	for _, rec := range bucket {
		if rec.FetchedAt.After(latest) {
			latest = rec.FetchedAt
		}
	}
	out.FetchedAt = latest

	return out
}

// pickPrimary orders by ascending source-priority rank, then most recent
// fetch time. Records without a fetch time sort as if fetched now.
func (m *Merger) pickPrimary(bucket []model.RawRecord, now time.Time) model.RawRecord {
	best := 0
	for i := 1; i < len(bucket); i++ {
		ri, rb := m.sourceRank(bucket[i].Source), m.sourceRank(bucket[best].Source)
		if ri < rb {
			best = i
			continue
		}
		if ri == rb && fetchedOr(bucket[i], now).After(fetchedOr(bucket[best], now)) {
			best = i
		}
	}
	return bucket[best]
}

func (m *Merger) sourceRank(source string) int {
	if rank, ok := m.rank[strings.ToLower(source)]; ok {
		return rank
	}
	return len(m.rank) + 1
}

func fetchedOr(rec model.RawRecord, fallback time.Time) time.Time {
	if rec.FetchedAt.IsZero() {
		return fallback
	}
	return rec.FetchedAt
}

// pickDescription returns the longest normalized description contributed by
// any cluster member, ties broken by first-seen order.
func pickDescription(bucket []model.RawRecord) string {
	best, bestLen := "", -1
	for _, rec := range bucket {
		txt := normText(rec.BestDescription())
		if len(txt) > bestLen {
			best, bestLen = txt, len(txt)
		}
	}
	return best
}

// pickImage returns the first non-placeholder URL that verifies as
// reachable, falling back to the first non-placeholder URL.
func (m *Merger) pickImage(ctx context.Context, bucket []model.RawRecord) string {
	var cleaned []string
	for _, rec := range bucket {
		if rec.ImageURL != "" && rec.ImageURL != Placeholder {
			cleaned = append(cleaned, rec.ImageURL)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}
	for _, url := range cleaned {
		if m.verifier.Verify(ctx, url) {
			return url
		}
	}
	return cleaned[0]
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameVenue(a, b string) bool {
	if a == "" && b == "" {
		return false
	}
	return normText(a) == normText(b)
}

// normText lowercases and collapses whitespace.
func normText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// orderedUnionFolded deduplicates case-insensitively, keeping first-seen
// order and lowercasing the output.
func orderedUnionFolded(seqs ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, seq := range seqs {
		for _, s := range seq {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// orderedUnion deduplicates verbatim values, keeping first-seen order.
func orderedUnion(seq []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range seq {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
