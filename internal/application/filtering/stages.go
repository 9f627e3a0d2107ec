package filtering

import (
	"context"
	"fmt"

	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/domain/geometry"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// Stage names, in their conventional pipeline order.
const (
	StageDescriptor = "descriptor"
	StageEmbedding  = "embedding"
	StageOverlap    = "overlap"
)

// floatValue wraps a diagnostic number for the optional Verdict field.
func floatValue(v float64) *float64 { return &v }

// ─────────────────────────────────────────────────────────────────────────────
// Descriptor stage
// ─────────────────────────────────────────────────────────────────────────────

// DescriptorStage rejects candidates on cheap 2D properties before any 3D
// work is spent on them: molecular weight, rotatable bonds, and ring size.
type DescriptorStage struct {
	cfg config.MergeConfig
}

// NewDescriptorStage wires the descriptor gate from merge parameters.
func NewDescriptorStage(cfg config.MergeConfig) *DescriptorStage {
	return &DescriptorStage{cfg: cfg}
}

func (s *DescriptorStage) Name() string { return StageDescriptor }

func (s *DescriptorStage) Check(_ context.Context, state *CandidateState, _ *PairContext) (Verdict, error) {
	if mw := state.Mol.MolecularWeight(); mw > s.cfg.MaxMolecularWeight {
		return Verdict{
			Detail: fmt.Sprintf("molecular weight %.1f above %.1f", mw, s.cfg.MaxMolecularWeight),
			Value:  floatValue(mw),
		}, nil
	}
	if rb := state.Mol.RotatableBondCount(); rb > s.cfg.MaxRotatableBonds {
		return Verdict{
			Detail: fmt.Sprintf("%d rotatable bonds above %d", rb, s.cfg.MaxRotatableBonds),
			Value:  floatValue(float64(rb)),
		}, nil
	}
	if rs := state.Mol.LargestRingSize(); rs > s.cfg.MaxRingSize {
		return Verdict{
			Detail: fmt.Sprintf("ring of size %d above %d", rs, s.cfg.MaxRingSize),
			Value:  floatValue(float64(rs)),
		}, nil
	}
	return Verdict{Passed: true}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Embedding stage
// ─────────────────────────────────────────────────────────────────────────────

// EmbeddingStage builds a constrained 3D pose: fragment A's coordinates are
// transferred onto the candidate by MCS and fragment B's through the
// expansion synthon, clashing pins are resolved in fragment B's favour, the
// remaining atoms relax under the force field, and the resulting strain is
// compared against the unconstrained baseline.  Candidates that cannot embed
// or come out too strained are rejected; both are properties of the
// candidate, not failures of the stage.
type EmbeddingStage struct {
	aligner  *geometry.StructuralAligner
	resolver *geometry.ClashResolver
	embedder *geometry.ConstrainedEmbedder
	eval     *geometry.ConformationalEnergyEvaluator
}

// NewEmbeddingStage wires the 3D embedding gate from merge parameters.
func NewEmbeddingStage(cfg config.MergeConfig) *EmbeddingStage {
	embedder := geometry.NewConstrainedEmbedder(cfg.EmbeddingSeed)
	return &EmbeddingStage{
		aligner:  geometry.NewStructuralAligner(),
		resolver: geometry.NewClashResolver(cfg.ClashDistance),
		embedder: embedder,
		eval: geometry.NewConformationalEnergyEvaluator(
			embedder, cfg.BaselineConformers, cfg.EnergyRatioThreshold),
	}
}

func (s *EmbeddingStage) Name() string { return StageEmbedding }

func (s *EmbeddingStage) Check(_ context.Context, state *CandidateState, pc *PairContext) (Verdict, error) {
	if pc == nil || pc.FragmentA == nil || pc.FragmentB == nil {
		return Verdict{}, errors.InvalidParam("embedding stage requires both fragment poses")
	}
	if !pc.FragmentA.HasPose() || !pc.FragmentB.HasPose() {
		return Verdict{}, errors.New(errors.CodeNoConformer,
			"fragment poses must carry 3D coordinates")
	}

	syn, err := merge.NewSynthon(state.Candidate.Synthon)
	if err != nil {
		return Verdict{Detail: "unusable expansion synthon: " + err.Error()}, nil
	}
	core, err := syn.Core()
	if err != nil {
		return Verdict{}, err
	}

	constraints, err := s.aligner.TransferPairCoordinates(state.Mol,
		pc.FragmentA.Mol, pc.FragmentB.Mol, core)
	if err != nil {
		return Verdict{}, err
	}
	if len(constraints) == 0 {
		return Verdict{Detail: "no common substructure with either fragment pose"}, nil
	}
	constraints = s.resolver.PruneConstraints(constraints)

	pose, err := s.embedder.Embed(state.Mol, geometry.ConstraintMap(constraints))
	if err != nil {
		if errors.IsCode(err, errors.CodeEmbeddingFailed) {
			return Verdict{Detail: "constrained embedding failed: " + err.Error()}, nil
		}
		return Verdict{}, err
	}

	ratio, err := s.eval.EnergyRatio(state.Mol, pose)
	if err != nil {
		return Verdict{}, err
	}
	detail := fmt.Sprintf("energy ratio %.2f (threshold %.2f)", ratio, s.eval.Threshold())
	if !s.eval.Acceptable(ratio) {
		return Verdict{Detail: detail, Value: floatValue(ratio)}, nil
	}

	state.Pose = pose
	return Verdict{Passed: true, Detail: detail, Value: floatValue(ratio)}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Overlap stage
// ─────────────────────────────────────────────────────────────────────────────

// OverlapStage rejects poses that bury too many atoms inside the receptor.
// It needs the pose built by the embedding stage, so it must run after it.
// A pair context without a receptor passes every candidate: receptor files
// are optional inputs.
type OverlapStage struct {
	resolver      *geometry.ClashResolver
	maxProportion float64
}

// NewOverlapStage wires the receptor clash gate from merge parameters.
func NewOverlapStage(cfg config.MergeConfig) *OverlapStage {
	return &OverlapStage{
		resolver:      geometry.NewClashResolver(cfg.ClashDistance),
		maxProportion: cfg.ProteinClashProportion,
	}
}

func (s *OverlapStage) Name() string { return StageOverlap }

func (s *OverlapStage) Check(_ context.Context, state *CandidateState, pc *PairContext) (Verdict, error) {
	if pc == nil || pc.Receptor == nil {
		return Verdict{Passed: true, Detail: "no receptor provided"}, nil
	}
	if state.Pose == nil {
		return Verdict{}, errors.New(errors.CodeNoConformer,
			"overlap stage requires an embedded pose; run it after embedding")
	}
	frac := s.resolver.ProteinClashFraction(state.Pose, pc.Receptor)
	detail := fmt.Sprintf("%.0f%% of atoms clash with receptor (limit %.0f%%)",
		frac*100, s.maxProportion*100)
	if frac > s.maxProportion {
		return Verdict{Detail: detail, Value: floatValue(frac)}, nil
	}
	return Verdict{Passed: true, Detail: detail, Value: floatValue(frac)}, nil
}

// DefaultStages returns the standard pipeline order.
func DefaultStages(cfg config.MergeConfig) []Stage {
	return []Stage{
		NewDescriptorStage(cfg),
		NewEmbeddingStage(cfg),
		NewOverlapStage(cfg),
	}
}
