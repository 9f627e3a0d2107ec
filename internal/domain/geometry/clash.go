package geometry

import (
	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Clash detection
// ─────────────────────────────────────────────────────────────────────────────

// ClashResolver detects and resolves steric clashes between transferred
// coordinate constraints, and scores candidate poses against receptor atoms.
type ClashResolver struct {
	// distance is the separation (Å) below which two atoms clash.
	distance float64
}

// NewClashResolver returns a resolver with the given clash distance.
func NewClashResolver(distance float64) *ClashResolver {
	return &ClashResolver{distance: distance}
}

// PruneConstraints removes constraints from earlier references that clash
// with constraints from later references.  Transferring coordinates from two
// overlapping fragment poses routinely pins neighbouring candidate atoms
// almost on top of each other; the fragment A pin yields so the synthon atoms
// keep the fragment B pose they were grown from, and the embedder relaxes the
// vacated region instead of locking the strain in.  Constraints from the same
// reference never prune each other, and the last reference is never pruned.
func (c *ClashResolver) PruneConstraints(constraints []Constraint) []Constraint {
	out := make([]Constraint, 0, len(constraints))
	for _, cand := range constraints {
		clashes := false
		for _, other := range constraints {
			if other.RefIndex <= cand.RefIndex {
				continue
			}
			if other.Position.Distance(cand.Position) < c.distance {
				clashes = true
				break
			}
		}
		if !clashes {
			out = append(out, cand)
		}
	}
	return out
}

// ProteinClashFraction returns the fraction of pose atoms lying within the
// clash distance of any receptor heavy atom.  The receptor molecule comes
// from ReadPDBHeavyAtoms and carries coordinates only.
func (c *ClashResolver) ProteinClashFraction(pose []chem.Point3, receptor *chem.Mol) float64 {
	if len(pose) == 0 || !receptor.HasConformer() {
		return 0
	}
	clashing := 0
	for _, p := range pose {
		for _, r := range receptor.Conformer {
			if p.Distance(r) < c.distance {
				clashing++
				break
			}
		}
	}
	return float64(clashing) / float64(len(pose))
}
