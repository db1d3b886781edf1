package merge

import (
	"context"

	"github.com/ppiankov/harvester/internal/logging"
	"github.com/ppiankov/harvester/internal/model"
)

// Engine folds per-source results into one deduplicated collection.
type Engine struct{}

// NewEngine creates a merge engine
func NewEngine() *Engine {
	return &Engine{}
}

// Fold merges results into a fresh accumulator. Unrestricted sources are
// folded first, then restricted sources in their given order. Records whose
// owner a restricted source may not publish are dropped. Failed sources are
// logged and contribute nothing.
//
// The returned stats follow processing order.
func (e *Engine) Fold(ctx context.Context, results []model.SourceResult) ([]model.Record, []model.SourceStats) {
	acc := NewAccumulator()
	stats := make([]model.SourceStats, 0, len(results))

	for _, res := range processingOrder(results) {
		st := model.SourceStats{
			Location:     res.Source.Location,
			Unrestricted: res.Source.Unrestricted(),
			Outcome:      res.Status.String(),
		}

		if !res.OK() {
			if res.Err != nil {
				st.Error = res.Err.Error()
			}
			logging.FromContext(ctx).Warn().
				Err(res.Err).
				Str("source", res.Source.Location).
				Str("outcome", st.Outcome).
				Msg("Skipping source")
			stats = append(stats, st)
			continue
		}

		st.Fetched = len(res.Records)
		for _, r := range res.Records {
			if !res.Source.Allows(r.OwnerCode) {
				continue
			}
			st.Accepted++
			switch acc.Offer(r) {
			case Appended:
				st.Appended++
			case Replaced:
				st.Replaced++
			case Discarded:
				st.Discarded++
			}
		}

		logging.FromContext(ctx).Debug().
			Str("source", res.Source.Location).
			Int("fetched", st.Fetched).
			Int("accepted", st.Accepted).
			Int("replaced", st.Replaced).
			Int("discarded", st.Discarded).
			Int("held", acc.Len()).
			Msg("Merged source")
		stats = append(stats, st)
	}

	return acc.Records(), stats
}

// processingOrder returns results with unrestricted sources first, keeping
// relative order within each group.
func processingOrder(results []model.SourceResult) []model.SourceResult {
	ordered := make([]model.SourceResult, 0, len(results))
	for _, r := range results {
		if r.Source.Unrestricted() {
			ordered = append(ordered, r)
		}
	}
	for _, r := range results {
		if !r.Source.Unrestricted() {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
