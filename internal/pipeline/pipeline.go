// Package pipeline runs harvest cycles: fetch approvals, fetch and merge
// every producer, attach approvals, save.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/harvester/internal/enrich"
	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/extract"
	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/merge"
	"github.com/ppiankov/harvester/internal/metrics"
	"github.com/ppiankov/harvester/internal/model"
)

// Sink receives the collection of a completed cycle.
type Sink interface {
	Save(ctx context.Context, records []model.Record) error
}

// Pipeline orchestrates harvest cycles. It holds no state between cycles;
// callers must not run two cycles at once.
type Pipeline struct {
	registry     model.Registry
	approvalsURL string

	fetcher   SourceFetcher
	records   *extract.RecordExtractor
	approvals *extract.ApprovalExtractor
	merger    *merge.Engine
	enricher  *enrich.Enricher
	sink      Sink
	metrics   *metrics.Recorder

	now func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMetrics records cycle metrics in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline over an already loaded registry.
func NewPipeline(cfg *model.Config, registry model.Registry, fetcher SourceFetcher, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:     registry,
		approvalsURL: cfg.Approvals.URL,
		fetcher:      fetcher,
		records:      extract.NewRecordExtractor(cfg.Fields),
		approvals:    extract.NewApprovalExtractor(),
		merger:       merge.NewEngine(),
		enricher:     enrich.NewEnricher(),
		sink:         sink,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the producers queried by every cycle.
func (p *Pipeline) Registry() model.Registry {
	return p.registry
}

// Harvest runs one cycle. The report is always returned. A non-nil error
// means the cycle was aborted and nothing was saved: the approval
// collection could not be read, enrichment failed, ctx was cancelled before
// saving, or the sink failed. Producer failures never abort a cycle.
func (p *Pipeline) Harvest(ctx context.Context) (*model.CycleReport, error) {
	report := &model.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	ctx = logging.WithCycle(ctx, report.ID)
	log := logging.FromContext(ctx)
	log.Info().Int("sources", p.registry.Len()).Msg("Harvest started")

	err := p.run(ctx, report)

	report.Duration = p.now().Sub(report.StartedAt)
	p.metrics.ObserveCycle(report)

	if err != nil {
		report.Error = err.Error()
		log.Error().Err(err).Dur("duration", report.Duration).Msg("Harvest aborted")
		return report, err
	}
	log.Info().
		Int("merged", report.Merged).
		Int("approvals_matched", report.ApprovalsMatched).
		Int("failed_sources", report.Failures()).
		Dur("duration", report.Duration).
		Msg("Harvest finished")
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *model.CycleReport) error {
	entries, err := p.fetchApprovals(ctx)
	if err != nil {
		return harvesterrors.Abort("approvals", err)
	}
	report.Approvals = len(entries)

	results := make([]model.SourceResult, 0, p.registry.Len())
	fromCache := make(map[string]bool)
	for _, src := range p.registry.Sources() {
		res, cached := p.fetchSource(ctx, src)
		p.metrics.ObserveFetch(res.Status)
		if cached {
			fromCache[src.Location] = true
		}
		results = append(results, res)
	}

	merged, stats := p.merger.Fold(ctx, results)
	for i := range stats {
		stats[i].FromCache = fromCache[stats[i].Location]
	}
	report.Sources = stats

	enriched, matched, err := p.enricher.Apply(merged, entries)
	if err != nil {
		return harvesterrors.Abort("enrich", err)
	}
	report.Merged = len(enriched)
	report.ApprovalsMatched = matched

	if err := ctx.Err(); err != nil {
		return harvesterrors.Abort("save", err)
	}
	if err := p.sink.Save(ctx, enriched); err != nil {
		return harvesterrors.Abort("save", err)
	}
	report.Saved = true
	return nil
}

func (p *Pipeline) fetchApprovals(ctx context.Context) ([]model.ApprovalEntry, error) {
	res, err := p.fetcher.Fetch(logging.WithSource(ctx, p.approvalsURL), p.approvalsURL)
	if err != nil {
		return nil, err
	}
	entries, err := p.approvals.Extract(res.Body)
	if err != nil {
		return nil, harvesterrors.WithLocation(err, p.approvalsURL)
	}
	return entries, nil
}

// Probe fetches and parses one source outside of a cycle. It is safe for
// concurrent use.
func (p *Pipeline) Probe(ctx context.Context, src model.SourceSpec) model.SourceResult {
	res, _ := p.fetchSource(ctx, src)
	return res
}

// ProbeApprovals fetches and parses the approval collection outside of a
// cycle and reports how many entries it holds.
func (p *Pipeline) ProbeApprovals(ctx context.Context) (int, error) {
	entries, err := p.fetchApprovals(ctx)
	return len(entries), err
}

// fetchSource fetches and parses one producer. The bool reports whether
// the body was served from the fetch cache.
func (p *Pipeline) fetchSource(ctx context.Context, src model.SourceSpec) (model.SourceResult, bool) {
	ctx = logging.WithSource(ctx, src.Location)

	res, err := p.fetcher.Fetch(ctx, src.Location)
	if err != nil {
		return model.Failed(src, err), false
	}

	records, err := p.records.Extract(res.Body)
	if err != nil {
		return model.Failed(src, harvesterrors.WithLocation(err, src.Location)), res.FromCache
	}

	logging.FromContext(ctx).Debug().Int("records", len(records)).Bool("from_cache", res.FromCache).Msg("Fetched source")
	return model.Fetched(src, records), res.FromCache
}
