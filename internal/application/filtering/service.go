package filtering

import (
	"context"

	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ResultRepository persists filter verdicts.  The PostgreSQL implementation
// lives in the infrastructure layer.
type ResultRepository interface {
	SaveResults(ctx context.Context, results []*merge.FilterResult) error
}

// PlacementPublisher hands passing candidates to the downstream placement
// tool.  The Kafka implementation lives in the infrastructure layer.
type PlacementPublisher interface {
	PublishPass(ctx context.Context, result *merge.FilterResult) error
}

// Service runs batches through the pipeline and fans results out to the
// result store and the placement topic.  Repository and publisher are
// optional: a nil dependency skips that side effect, which keeps the CLI
// usable against nothing but a Neo4j instance.
type Service struct {
	runner    *BatchRunner
	results   ResultRepository
	publisher PlacementPublisher
	logger    logging.Logger
}

// NewService wires the filtering service.
func NewService(runner *BatchRunner, results ResultRepository, publisher PlacementPublisher, logger logging.Logger) *Service {
	return &Service{
		runner:    runner,
		results:   results,
		publisher: publisher,
		logger:    logger.Named("filter-service"),
	}
}

// FilterPair filters every candidate of one expanded pair, persists the
// verdicts, and publishes the passes.  Persistence happens even when no
// candidate passes: a fully-rejected pair is a result worth keeping.
func (s *Service) FilterPair(ctx context.Context, result *merge.ExpansionResult, pc *PairContext) ([]*merge.FilterResult, error) {
	verdicts, err := s.runner.Run(ctx, result.Candidates, pc)
	if err != nil {
		return nil, err
	}

	if s.results != nil {
		if err := s.results.SaveResults(ctx, verdicts); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "persisting filter results")
		}
	}

	if s.publisher != nil {
		for _, v := range verdicts {
			if !v.Passed() {
				continue
			}
			if err := s.publisher.PublishPass(ctx, v); err != nil {
				return nil, errors.Wrap(err, errors.CodePlacementHandoff, v.Candidate.Name)
			}
		}
	}

	s.logger.Info("pair filtered",
		logging.String("pair", merge.PairName(result.FragmentA, result.FragmentB)),
		logging.Int("candidates", len(verdicts)),
	)
	return verdicts, nil
}
