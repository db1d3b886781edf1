package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/harvester/internal/cache"
	"github.com/ppiankov/harvester/internal/extract"
	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/metrics"
	"github.com/ppiankov/harvester/internal/model"
	"github.com/ppiankov/harvester/internal/pipeline"
	"github.com/ppiankov/harvester/internal/store"
	"github.com/ppiankov/harvester/internal/util"
	"github.com/ppiankov/harvester/internal/worker"
)

// newFetcher builds the source fetcher with pacing and, when enabled, the
// conditional fetch cache.
func newFetcher(cfg *model.Config) *pipeline.Fetcher {
	opts := []pipeline.FetcherOption{pipeline.WithPacer(newLimiter(cfg.RateLimiting))}
	if cfg.Cache.Enabled {
		c := cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		opts = append(opts, pipeline.WithCache(c, cfg.Cache.TTL))
	}
	return pipeline.NewFetcher(util.NewHTTPClient(cfg.HTTP), cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, opts...)
}

func newLimiter(cfg model.RateLimitingConfig) *worker.Limiter {
	limiter := worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	for _, h := range cfg.Hosts {
		limiter.SetHostRate(strings.TrimSpace(h.Host), h.RequestsPerSecond, h.Burst)
	}
	return limiter
}

func openStore(ctx context.Context, cfg *model.Config) (store.Store, error) {
	st, err := store.New(ctx, cfg.Storage, extract.NewRecordExtractor(cfg.Fields))
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	return st, nil
}

// newPipeline loads the registry once and wires a pipeline saving into st.
func newPipeline(cfg *model.Config, st store.Sink, rec *metrics.Recorder) (*pipeline.Pipeline, error) {
	registry, err := model.LoadRegistry(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("load producer registry: %w", err)
	}
	logging.Info().
		Int("producers", registry.Len()).
		Str("approvals", cfg.Approvals.URL).
		Str("storage", cfg.Storage.Backend).
		Msg("Registry loaded")

	return pipeline.NewPipeline(cfg, registry, newFetcher(cfg), st, pipeline.WithMetrics(rec)), nil
}

// cycleJob runs one harvest cycle per call. The summary is printed when
// verbose; afterSave runs only when the cycle saved.
func cycleJob(p *pipeline.Pipeline, out io.Writer, afterSave func()) worker.Job {
	return func(ctx context.Context) {
		report, err := p.Harvest(ctx)
		if verbose {
			pipeline.RenderSummary(out, report)
		}
		if err == nil && afterSave != nil {
			afterSave()
		}
	}
}
