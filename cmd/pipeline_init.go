package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wanderplan/places-cli/internal/merge"
	"github.com/wanderplan/places-cli/internal/pipeline"
	"github.com/wanderplan/places-cli/internal/quality"
	"github.com/wanderplan/places-cli/internal/resolve"
	"github.com/wanderplan/places-cli/internal/store"
	"github.com/wanderplan/places-cli/pkg/cache"
	"github.com/wanderplan/places-cli/pkg/searchindex"
)

// pipelineEnv holds the initialized sinks, store, and pipeline needed by the
// ingest/warm/optimize/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Index    searchindex.Writer
	Cache    cache.Writer
	Pipeline *pipeline.Pipeline
	Merger   *merge.Merger
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		_ = pe.Cache.Close()
	}
	if pe.Index != nil {
		_ = pe.Index.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, sinks, resolver, quality gate, and
// pipeline from the loaded config. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	var index searchindex.Writer
	if cfg.Index.Path != "" {
		idx, err := searchindex.NewSQLite(cfg.Index.Path)
		if err != nil {
			if st != nil {
				_ = st.Close()
			}
			return nil, eris.Wrap(err, "open search index")
		}
		index = idx
	}

	// The cache sink is best effort: an unreachable Redis disables it
	// rather than failing the command.
	var cacheWriter cache.Writer
	if cfg.Cache.Addr != "" {
		cw, err := cache.NewRedis(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			zap.L().Warn("redis unavailable, cache sink disabled",
				zap.String("addr", cfg.Cache.Addr), zap.Error(err))
		} else {
			cacheWriter = cw
		}
	}

	resolver := resolve.New(resolve.Config{
		FuzzyThreshold:    cfg.Dedup.FuzzyThreshold,
		AddressSimilarity: cfg.Dedup.AddressSimilarity,
		GeoTolerance:      cfg.Dedup.GeoTolerance,
	}, resolve.LevenshteinRatio)

	gate := quality.NewGate(quality.Config{
		MinCompleteness: cfg.Quality.MinCompleteness,
		RequirePhoto:    cfg.Quality.RequirePhoto,
	})

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.CacheTTL = time.Duration(cfg.Cache.TTLSecs) * time.Second
	if len(cfg.Warm.Cities) > 0 {
		pipeCfg.WarmCities = cfg.Warm.Cities
	}
	if len(cfg.Warm.Flags) > 0 {
		pipeCfg.WarmFlags = cfg.Warm.Flags
	}
	if cfg.Warm.Limit > 0 {
		pipeCfg.WarmLimit = cfg.Warm.Limit
	}

	var verifier merge.ImageVerifier = merge.NoopVerifier{}
	if cfg.Merge.VerifyImages {
		verifier = merge.NewHTTPVerifier(cfg.Merge.ImageRateLimit, 10*time.Second)
	}
	merger := merge.New(merge.Config{
		TitleThreshold: cfg.Merge.TitleThreshold,
		SourcePriority: cfg.Merge.SourcePriority,
	}, resolve.LevenshteinRatio, verifier)

	return &pipelineEnv{
		Store:    st,
		Index:    index,
		Cache:    cacheWriter,
		Pipeline: pipeline.New(pipeCfg, resolver, gate, index, cacheWriter, st),
		Merger:   merger,
	}, nil
}

// initStore opens the configured catalog store. An empty driver disables
// persistence.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "":
		return nil, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open sqlite store")
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "open postgres store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
