package expansion

import (
	"context"
	"encoding/json"

	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ArtifactStore persists pair-level artifacts under a name.  Implementations:
// MinIO object storage and a local directory.
type ArtifactStore interface {
	Put(ctx context.Context, name string, data []byte) error
}

// ArtifactWriter serializes expansion results to their pair-named JSON
// artifact.  One artifact per ordered pair; re-running a pair overwrites it.
type ArtifactWriter struct {
	store  ArtifactStore
	logger logging.Logger
}

// NewArtifactWriter wires a writer on the given store.
func NewArtifactWriter(store ArtifactStore, logger logging.Logger) *ArtifactWriter {
	return &ArtifactWriter{store: store, logger: logger.Named("artifacts")}
}

// WriteExpansion stores one expansion result as <nameA>_<nameB>.json.
func (w *ArtifactWriter) WriteExpansion(ctx context.Context, result *merge.ExpansionResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to marshal expansion result")
	}

	name := merge.ArtifactName(result.FragmentA, result.FragmentB)
	if err := w.store.Put(ctx, name, data); err != nil {
		return errors.Wrap(err, errors.CodeArtifactWrite, name)
	}

	w.logger.Debug("wrote expansion artifact",
		logging.String("artifact", name),
		logging.Int("candidates", len(result.Candidates)),
	)
	return nil
}

// WriteAll stores every result in the batch, skipping failed pairs.
func (w *ArtifactWriter) WriteAll(ctx context.Context, results []PairResult) error {
	for _, pr := range results {
		if pr.Err != nil || pr.Result == nil {
			continue
		}
		if err := w.WriteExpansion(ctx, pr.Result); err != nil {
			return err
		}
	}
	return nil
}
