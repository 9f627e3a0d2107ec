// Package repositories contains the Neo4j-backed implementations of the
// application layer's graph query interfaces.
package repositories

import (
	"context"
	"fmt"

	neo4jdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kate-fie/fragment-network-merges/internal/application/expansion"
	driver "github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/neo4j"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// transactor is the slice of driver.Driver the repository needs; tests
// substitute a fake.
type transactor interface {
	ExecuteRead(ctx context.Context, work func(driver.Transaction) (any, error)) (any, error)
}

type fragnetRepo struct {
	driver transactor
	log    logging.Logger
}

// NewFragnetRepo returns a fragment-network repository backed by the given
// driver.
func NewFragnetRepo(d *driver.Driver, log logging.Logger) expansion.GraphRepository {
	return &fragnetRepo{driver: d, log: log.Named("fragnet")}
}

func newFragnetRepo(t transactor, log logging.Logger) *fragnetRepo {
	return &fragnetRepo{driver: t, log: log}
}

// NodeExists checks for a fragment node keyed by canonical SMILES.
func (r *fragnetRepo) NodeExists(ctx context.Context, smiles string) (bool, error) {
	query := `MATCH (m:F2 {smiles: $smiles}) RETURN count(m) AS n`

	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"smiles": smiles})
		if err != nil {
			return nil, err
		}
		if result.Next(ctx) {
			n, ok := result.Record().Values[0].(int64)
			if !ok {
				return nil, errors.New(errors.CodeGraphQueryFailed, "unexpected count type")
			}
			return n > 0, nil
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		return false, nil
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// DescendantEdgeLabels walks the fragmentation tree below a fragment node and
// returns every FRAG edge label on the way down.  Labels are pipe-delimited
// records carrying the synthon pair of each fragmentation step.
func (r *fragnetRepo) DescendantEdgeLabels(ctx context.Context, smiles string) ([]string, error) {
	query := `
		MATCH (fa:F2 {smiles: $smiles})-[e:FRAG*]->(:F2)
		UNWIND e AS edge
		RETURN DISTINCT edge.label AS label
	`

	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"smiles": smiles})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, func(rec *neo4jdriver.Record) (string, error) {
			label, ok := rec.Values[0].(string)
			if !ok {
				return "", errors.New(errors.CodeMalformedLabel,
					fmt.Sprintf("edge label is %T, want string", rec.Values[0]))
			}
			return label, nil
		})
	})
	if err != nil {
		return nil, err
	}
	labels := out.([]string)
	r.log.Debug("collected descendant edge labels",
		logging.String("smiles", smiles),
		logging.Int("labels", len(labels)),
	)
	return labels, nil
}

// BoundedExpansion finds vendor compounds within maxHops of the base fragment
// whose incoming FRAG edge carries the synthon in either synthon field of the
// pipe-delimited label.  Hits come back in SMILES order so the candidate
// ordinals derived from them are stable between runs.
func (r *fragnetRepo) BoundedExpansion(ctx context.Context, smiles, synthon string, maxHops, minHeavyAtoms int) ([]expansion.ExpansionHit, error) {
	// The hop bound is part of the relationship pattern and cannot be a query
	// parameter; it comes from validated config, never from user input.
	query := fmt.Sprintf(`
		MATCH (fa:F2 {smiles: $smiles})-[:FRAG*0..%d]-(:F2)<-[e:FRAG]-(c:Mol)
		WHERE c.hac > $minHac
		  AND (split(e.label, '|')[1] = $synthon OR split(e.label, '|')[4] = $synthon)
		RETURN DISTINCT c.smiles AS smiles, c.hac AS hac, c.cmpd_id AS cmpd_id
		ORDER BY smiles
	`, maxHops)
	params := map[string]any{
		"smiles":  smiles,
		"synthon": synthon,
		"minHac":  minHeavyAtoms,
	}

	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, result, mapExpansionHit)
	})
	if err != nil {
		return nil, err
	}
	hits := out.([]expansion.ExpansionHit)
	r.log.Debug("bounded expansion",
		logging.String("smiles", smiles),
		logging.String("synthon", synthon),
		logging.Int("hits", len(hits)),
	)
	return hits, nil
}

func mapExpansionHit(rec *neo4jdriver.Record) (expansion.ExpansionHit, error) {
	var hit expansion.ExpansionHit

	smiles, ok := rec.Values[0].(string)
	if !ok {
		return hit, errors.New(errors.CodeGraphQueryFailed,
			fmt.Sprintf("compound smiles is %T, want string", rec.Values[0]))
	}
	hit.SMILES = smiles

	if hac, ok := rec.Values[1].(int64); ok {
		hit.HeavyAtoms = int(hac)
	}
	if id, ok := rec.Values[2].(string); ok {
		hit.CompoundID = id
	}
	return hit, nil
}
