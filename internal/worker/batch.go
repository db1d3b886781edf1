package worker

import (
	"context"

	"github.com/ppiankov/harvester/internal/model"
)

// Prober fetches and parses one source without merging or saving it.
type Prober interface {
	Probe(ctx context.Context, src model.SourceSpec) model.SourceResult
}

// ProbeAll checks sources concurrently and returns one result per source,
// in the order given. Sources not probed before ctx was cancelled are
// reported as failed with the context error.
//
// Harvest cycles never use this: their fetches stay sequential.
func ProbeAll(ctx context.Context, prober Prober, sources []model.SourceSpec, concurrency int) []model.SourceResult {
	results := make([]model.SourceResult, len(sources))
	done := make([]bool, len(sources))

	tasks := make([]Task, len(sources))
	for i, src := range sources {
		tasks[i] = func(ctx context.Context) {
			results[i] = prober.Probe(ctx, src)
			done[i] = true
		}
	}
	NewPool(concurrency).Run(ctx, tasks)

	for i, src := range sources {
		if !done[i] {
			results[i] = model.Failed(src, ctx.Err())
		}
	}
	return results
}
