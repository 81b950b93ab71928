// Package pipeline orchestrates ingestion: duplicate resolution, the quality
// gate, and sink writes, with per-record failure isolation and aggregate
// statistics.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wanderplan/places-cli/internal/model"
	"github.com/wanderplan/places-cli/internal/normalize"
	"github.com/wanderplan/places-cli/internal/quality"
	"github.com/wanderplan/places-cli/internal/resolve"
	"github.com/wanderplan/places-cli/internal/store"
	"github.com/wanderplan/places-cli/pkg/cache"
	"github.com/wanderplan/places-cli/pkg/searchindex"
)

// Config holds orchestrator settings.
type Config struct {
	// CacheTTL applies to every cache write.
	CacheTTL time.Duration
	// WarmCities and WarmFlags are the default warm-up targets.
	WarmCities []string
	WarmFlags  []string
	// WarmLimit caps records per warm-up query.
	WarmLimit int
}

// DefaultConfig returns the production orchestrator settings.
func DefaultConfig() Config {
	return Config{
		CacheTTL:   time.Hour,
		WarmCities: []string{"bangkok"},
		WarmFlags:  []string{"attractions", "shopping", "food_dining", "cultural_heritage"},
		WarmLimit:  20,
	}
}

// Pipeline sequences resolver, quality gate and sink writes for each record.
// The index and cache sinks and the persistent store are all optional: a nil
// sink is skipped and reported as not written.
type Pipeline struct {
	cfg      Config
	resolver *resolve.Resolver
	gate     *quality.Gate
	index    searchindex.Writer
	cache    cache.Writer
	store    store.Store

	mu    sync.Mutex
	stats model.PipelineStatistics
}

// New creates a pipeline around the given components.
func New(cfg Config, resolver *resolve.Resolver, gate *quality.Gate, index searchindex.Writer, cacheWriter cache.Writer, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		resolver: resolver,
		gate:     gate,
		index:    index,
		cache:    cacheWriter,
		store:    st,
	}
}

// ProcessOne runs a single record through the pipeline. Failures are
// captured on the result; the method itself never fails.
func (p *Pipeline) ProcessOne(ctx context.Context, rec model.RawRecord) model.PipelineResult {
	start := time.Now()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	result := model.PipelineResult{
		ID:   rec.ID,
		Name: rec.Name,
		City: rec.City,
	}

	p.processGuarded(ctx, rec, &result)
	result.Elapsed = time.Since(start)

	p.record(result)
	return result
}

// processGuarded runs the three stages behind a panic boundary so one
// malformed record cannot abort a batch.
func (p *Pipeline) processGuarded(ctx context.Context, rec model.RawRecord, result *model.PipelineResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Status = model.StatusError
			result.Errors = append(result.Errors, fmt.Sprintf("unexpected failure: %v", r))
			zap.L().Error("pipeline: record failed",
				zap.String("id", rec.ID),
				zap.Any("panic", r),
			)
		}
	}()

	// Stage 1: duplicate resolution. The catalog index is mutated only on
	// the unique outcome.
	cand := normalize.NewCandidate(rec)
	if match := p.resolver.Resolve(cand); match != nil {
		result.Status = model.StatusDuplicate
		result.DuplicateOf = match.ID
		result.Strategy = match.Strategy
		return
	}

	// Stage 2: quality gate.
	accepted, metrics, details := p.gate.Assess(rec)
	result.Metrics = &metrics
	if !accepted {
		result.Status = model.StatusRejected
		result.Warnings = append(result.Warnings, details.Warnings...)
		return
	}

	// Stage 3: sink writes. Independent of each other, so they run in
	// parallel; a failing sink is recorded as a warning and never changes
	// the record's status.
	result.Status = model.StatusNew
	var warnMu sync.Mutex
	warn := func(msg string) {
		warnMu.Lock()
		result.Warnings = append(result.Warnings, msg)
		warnMu.Unlock()
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if p.index == nil {
			return nil
		}
		if err := p.index.Write(gCtx, rec); err != nil {
			warn("index write failed: " + err.Error())
			zap.L().Warn("pipeline: index write failed", zap.String("id", rec.ID), zap.Error(err))
			return nil
		}
		warnMu.Lock()
		result.SearchIndexed = true
		warnMu.Unlock()
		return nil
	})
	g.Go(func() error {
		if p.cache == nil {
			return nil
		}
		ok := true
		for _, flag := range rec.Flags {
			key := cache.PlacesKey(rec.City, flag)
			if err := p.cache.Put(gCtx, key, []model.RawRecord{rec}, p.cfg.CacheTTL); err != nil {
				ok = false
				warn("cache write failed: " + err.Error())
				zap.L().Warn("pipeline: cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		if ok && len(rec.Flags) > 0 {
			warnMu.Lock()
			result.CacheUpdated = true
			warnMu.Unlock()
		}
		return nil
	})
	g.Go(func() error {
		if p.store == nil {
			return nil
		}
		if err := p.store.SaveRecord(gCtx, rec, metrics); err != nil {
			warn("store write failed: " + err.Error())
			zap.L().Warn("pipeline: store write failed", zap.String("id", rec.ID), zap.Error(err))
		}
		return nil
	})
	_ = g.Wait()
}

// ProcessBatch runs records sequentially and returns one result per input in
// the same order. The batch never aborts early.
func (p *Pipeline) ProcessBatch(ctx context.Context, records []model.RawRecord) []model.PipelineResult {
	zap.L().Info("pipeline: processing batch", zap.Int("records", len(records)))

	results := make([]model.PipelineResult, 0, len(records))
	for _, rec := range records {
		results = append(results, p.ProcessOne(ctx, rec))
	}

	stats := p.Statistics()
	zap.L().Info("pipeline: batch complete",
		zap.Int("records", len(records)),
		zap.Int("new", stats.New),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("rejected", stats.Rejected),
		zap.Int("errored", stats.Errored),
	)
	return results
}

// record folds one result into the aggregate statistics.
func (p *Pipeline) record(result model.PipelineResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Processed++
	p.stats.ProcessingTime += result.Elapsed

	switch result.Status {
	case model.StatusNew:
		p.stats.New++
	case model.StatusDuplicate:
		p.stats.Duplicates++
		switch result.Strategy {
		case model.MatchIdentity:
			p.stats.IdentityMatches++
		case model.MatchFuzzyName:
			p.stats.FuzzyMatches++
		case model.MatchAddress:
			p.stats.AddressMatches++
		case model.MatchGeo:
			p.stats.GeoMatches++
		}
	case model.StatusRejected:
		p.stats.Rejected++
	case model.StatusError:
		p.stats.Errored++
	}

	if result.SearchIndexed {
		p.stats.SearchIndexed++
	}
	if result.CacheUpdated {
		p.stats.CacheUpdated++
	}
}

// Statistics returns a snapshot of the aggregate counters.
func (p *Pipeline) Statistics() model.PipelineStatistics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Reset clears the in-memory catalog index and the aggregate counters.
func (p *Pipeline) Reset() {
	p.resolver.Reset()
	p.mu.Lock()
	p.stats = model.PipelineStatistics{}
	p.mu.Unlock()
}

// WarmCache re-runs the common flag queries against the search index and
// pushes the results into the cache. Idempotent; empty arguments fall back
// to the configured defaults.
func (p *Pipeline) WarmCache(ctx context.Context, cities, flags []string) error {
	if p.index == nil || p.cache == nil {
		zap.L().Warn("pipeline: warm-up skipped, index or cache not configured")
		return nil
	}
	if len(cities) == 0 {
		cities = p.cfg.WarmCities
	}
	if len(flags) == 0 {
		flags = p.cfg.WarmFlags
	}

	for _, city := range cities {
		for _, flag := range flags {
			records, err := p.index.SearchByFlags(ctx, []string{flag}, city, p.cfg.WarmLimit)
			if err != nil {
				zap.L().Error("pipeline: warm-up query failed",
					zap.String("city", city), zap.String("flag", flag), zap.Error(err))
				continue
			}
			if len(records) == 0 {
				continue
			}
			key := cache.PlacesKey(city, flag)
			if err := p.cache.Put(ctx, key, records, p.cfg.CacheTTL); err != nil {
				zap.L().Error("pipeline: warm-up write failed", zap.String("key", key), zap.Error(err))
				continue
			}
			zap.L().Info("pipeline: cache warmed",
				zap.String("key", key), zap.Int("records", len(records)))
		}
	}
	return nil
}

// Optimize compacts the search index. Idempotent and safe at any time.
func (p *Pipeline) Optimize(ctx context.Context) error {
	if p.index == nil {
		return nil
	}
	if err := p.index.Optimize(ctx); err != nil {
		return err
	}
	zap.L().Info("pipeline: search index optimized")
	return nil
}
