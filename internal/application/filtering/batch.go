package filtering

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
)

// BatchRunner filters many candidates concurrently.  Concurrency is bounded;
// output order matches input order regardless of completion order.  A stage
// error aborts the batch (candidate rejections never do).
type BatchRunner struct {
	pipeline    *Pipeline
	concurrency int
	logger      logging.Logger
}

// NewBatchRunner wires a runner.  Concurrency below 1 is clamped to 1.
func NewBatchRunner(pipeline *Pipeline, concurrency int, logger logging.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRunner{pipeline: pipeline, concurrency: concurrency, logger: logger.Named("batch")}
}

// Run filters candidates and returns one result per candidate, in input
// order.
func (r *BatchRunner) Run(ctx context.Context, candidates []merge.Candidate, pc *PairContext) ([]*merge.FilterResult, error) {
	results := make([]*merge.FilterResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			res, err := r.pipeline.Filter(gctx, cand, pc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	passed := 0
	for _, res := range results {
		if res.Passed() {
			passed++
		}
	}
	r.logger.Info("batch filtered",
		logging.Int("candidates", len(candidates)),
		logging.Int("passed", passed),
	)
	return results, nil
}
