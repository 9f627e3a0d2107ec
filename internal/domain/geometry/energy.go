package geometry

import (
	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
)

// baselineFloor keeps the strain ratio stable when a small molecule relaxes
// to essentially zero energy: dividing by a vanishing baseline would reject
// every pose however reasonable.
const baselineFloor = 0.05

// ─────────────────────────────────────────────────────────────────────────────
// Strain evaluation
// ─────────────────────────────────────────────────────────────────────────────

// ConformationalEnergyEvaluator scores how strained a constrained pose is
// relative to what the same molecule relaxes to without constraints.  A pose
// whose energy is many times the unconstrained baseline is geometrically
// implausible and should be rejected.
type ConformationalEnergyEvaluator struct {
	embedder           *ConstrainedEmbedder
	baselineConformers int
	threshold          float64
}

// NewConformationalEnergyEvaluator wires the evaluator.  baselineConformers
// sets how many unconstrained embeddings are averaged into the baseline and
// threshold is the maximum acceptable energy ratio.
func NewConformationalEnergyEvaluator(embedder *ConstrainedEmbedder, baselineConformers int, threshold float64) *ConformationalEnergyEvaluator {
	return &ConformationalEnergyEvaluator{
		embedder:           embedder,
		baselineConformers: baselineConformers,
		threshold:          threshold,
	}
}

// EnergyRatio returns pose energy divided by the unconstrained baseline.
// The baseline is floored so a molecule that relaxes to near-zero energy does
// not turn negligible pose strain into an enormous ratio.
func (e *ConformationalEnergyEvaluator) EnergyRatio(mol *chem.Mol, pose []chem.Point3) (float64, error) {
	baseline, err := e.embedder.BaselineEnergy(mol, e.baselineConformers)
	if err != nil {
		return 0, err
	}
	if baseline < baselineFloor {
		baseline = baselineFloor
	}
	ff := NewForceField(mol)
	return ff.Energy(pose) / baseline, nil
}

// Acceptable reports whether the ratio clears the configured threshold.
func (e *ConformationalEnergyEvaluator) Acceptable(ratio float64) bool {
	return ratio <= e.threshold
}

// Threshold exposes the configured limit for diagnostics.
func (e *ConformationalEnergyEvaluator) Threshold() float64 { return e.threshold }
