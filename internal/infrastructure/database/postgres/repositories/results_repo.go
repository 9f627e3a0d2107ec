// Package repositories contains the PostgreSQL-backed implementations of the
// application layer's persistence interfaces.
package repositories

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/postgres"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// dbtx is the command surface the repository needs; *pgxpool.Pool satisfies
// it and tests substitute a fake.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertResultSQL = `
	INSERT INTO merge_results (
		id, candidate_name, candidate_smiles, fragment_a, fragment_b,
		synthon, status, failed_stage, stage_records, pose_molblock, elapsed_ms
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (candidate_name) DO UPDATE SET
		status = EXCLUDED.status,
		failed_stage = EXCLUDED.failed_stage,
		stage_records = EXCLUDED.stage_records,
		pose_molblock = EXCLUDED.pose_molblock,
		elapsed_ms = EXCLUDED.elapsed_ms,
		updated_at = now()
`

// ResultsRepo persists filter verdicts to the merge_results table.
type ResultsRepo struct {
	db  dbtx
	log logging.Logger
}

// NewResultsRepo builds the repository on a live connection.
func NewResultsRepo(conn *postgres.Connection, log logging.Logger) *ResultsRepo {
	return &ResultsRepo{db: conn.Pool(), log: log.Named("results")}
}

func newResultsRepo(db dbtx, log logging.Logger) *ResultsRepo {
	return &ResultsRepo{db: db, log: log}
}

// SaveResults upserts every verdict in the batch, passes and failures alike.
// Re-running a pair overwrites the previous verdicts for its candidates.
func (r *ResultsRepo) SaveResults(ctx context.Context, results []*merge.FilterResult) error {
	for _, res := range results {
		records, err := json.Marshal(res.Records)
		if err != nil {
			return errors.Wrap(err, errors.CodeSerialization, "failed to marshal stage records")
		}

		var poseBlock *string
		if res.Pose != nil && res.Pose.HasConformer() {
			block := chem.MolToMolBlock(res.Pose)
			poseBlock = &block
		}

		var failedStage *string
		if s := res.FailedStage(); s != "" {
			failedStage = &s
		}

		_, err = r.db.Exec(ctx, insertResultSQL,
			uuid.New(),
			res.Candidate.Name,
			res.Candidate.SMILES,
			res.Candidate.FragmentA,
			res.Candidate.FragmentB,
			res.Candidate.Synthon,
			string(res.Status),
			failedStage,
			records,
			poseBlock,
			res.Elapsed.Milliseconds(),
		)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "failed to save filter result")
		}
	}
	r.log.Debug("saved filter results", logging.Int("count", len(results)))
	return nil
}
