// Package filtering implements the 3D filter pipeline that turns raw
// expansion candidates into placement-ready merges: cheap descriptor gates
// first, then constrained embedding with strain scoring, then receptor
// overlap checks.  Stages run in order and the first rejection ends the
// candidate's run.
package filtering

import (
	"context"
	"time"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// PairContext carries the per-pair inputs every stage may need: the two
// parent fragments with their crystallographic poses and, optionally, the
// receptor heavy atoms.
type PairContext struct {
	FragmentA *merge.Fragment
	FragmentB *merge.Fragment
	// Receptor holds the protein heavy atoms; stages that need it treat a
	// nil receptor as "not available" and pass.
	Receptor *chem.Mol
}

// CandidateState is the mutable working record a candidate accumulates as it
// moves through the stages: the parsed graph and, once embedded, its pose.
type CandidateState struct {
	Candidate merge.Candidate
	Mol       *chem.Mol
	Pose      []chem.Point3
}

// Verdict is one stage's decision for one candidate.  Value carries the
// stage's headline number when it has one, such as the energy ratio or the
// receptor clash fraction, so downstream consumers do not have to parse it
// back out of Detail.
type Verdict struct {
	Passed bool
	Detail string
	Value  *float64
}

// Stage is one filter in the pipeline.  A returned error means the stage
// itself broke (infrastructure, programming error) and aborts the batch; a
// rejection is expressed through the Verdict.
type Stage interface {
	Name() string
	Check(ctx context.Context, state *CandidateState, pc *PairContext) (Verdict, error)
}

// Pipeline runs candidates through an ordered stage list.
type Pipeline struct {
	stages []Stage
	logger logging.Logger
}

// NewPipeline wires a pipeline; stage order is the evaluation order.
func NewPipeline(logger logging.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: logger.Named("pipeline")}
}

// StageNames returns the configured stage order, for diagnostics.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Filter evaluates one candidate.  Stages run in order; the first rejection
// short-circuits, so the result's Records is a prefix of the stage list.
// An unparseable candidate SMILES fails at a synthetic "parse" stage rather
// than erroring: the graph returned it, but it is still just a bad candidate.
func (p *Pipeline) Filter(ctx context.Context, cand merge.Candidate, pc *PairContext) (*merge.FilterResult, error) {
	start := time.Now()
	result := &merge.FilterResult{Candidate: cand, Status: merge.StatusFail}

	mol, err := chem.MolFromSmiles(cand.SMILES)
	if err != nil {
		result.Records = append(result.Records, merge.StageRecord{
			Stage:  "parse",
			Passed: false,
			Detail: err.Error(),
		})
		result.Elapsed = time.Since(start)
		return result, nil
	}
	mol.Name = cand.Name
	state := &CandidateState{Candidate: cand, Mol: mol}

	for _, stage := range p.stages {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeTimeout, "filtering cancelled")
		default:
		}

		verdict, err := stage.Check(ctx, state, pc)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStageFailed, stage.Name())
		}
		result.Records = append(result.Records, merge.StageRecord{
			Stage:  stage.Name(),
			Passed: verdict.Passed,
			Detail: verdict.Detail,
			Value:  verdict.Value,
		})
		if !verdict.Passed {
			p.logger.Debug("candidate rejected",
				logging.String("candidate", cand.Name),
				logging.String("stage", stage.Name()),
				logging.String("detail", verdict.Detail),
			)
			result.Elapsed = time.Since(start)
			return result, nil
		}
	}

	result.Status = merge.StatusPass
	if state.Pose != nil {
		posed := state.Mol.Copy()
		posed.Conformer = state.Pose
		result.Pose = posed
	}
	result.Elapsed = time.Since(start)
	return result, nil
}
