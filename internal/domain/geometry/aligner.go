package geometry

import (
	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Coordinate transfer
// ─────────────────────────────────────────────────────────────────────────────

// Constraint pins one candidate atom to a reference position taken from a
// fragment pose, tagged with which reference contributed it.
type Constraint struct {
	Atom     int
	Position chem.Point3
	// RefIndex identifies the reference molecule (0 = fragment A, 1 = B).
	RefIndex int
}

// StructuralAligner maps candidate atoms onto fragment poses via maximum
// common substructure and transfers the matched coordinates.  The transferred
// positions become the pinned constraints for the embedder.
type StructuralAligner struct{}

// NewStructuralAligner returns a ready aligner.
func NewStructuralAligner() *StructuralAligner { return &StructuralAligner{} }

// TransferPairCoordinates builds the pinned constraints for one merge
// candidate.  Fragment A contributes through maximum common substructure with
// the full candidate (RefIndex 0).  Fragment B contributes only through the
// expansion synthon: synthonCore — the synthon with its attachment point
// stripped — is located by substructure search in both fragment B and the
// candidate, and the matched candidate atoms are pinned to fragment B's
// coordinates (RefIndex 1).  Pinning the candidate's full overlap with
// fragment B would drag atoms that belong to fragment A's side of the merge
// onto fragment B's pose, so only the synthon atoms are pinned.  Atoms already
// claimed by fragment A keep their fragment A pin.  A fragment without a
// conformer is an error; a synthon core absent from either molecule
// contributes nothing.
func (a *StructuralAligner) TransferPairCoordinates(candidate, fragA, fragB, synthonCore *chem.Mol) ([]Constraint, error) {
	if candidate.NumAtoms() == 0 {
		return nil, errors.InvalidParam("candidate molecule is empty")
	}
	if !fragA.HasConformer() || !fragB.HasConformer() {
		return nil, errors.New(errors.CodeNoConformer,
			"reference pose carries no 3D coordinates")
	}

	claimed := make(map[int]bool)
	var constraints []Constraint
	for _, pair := range chem.FindMCS(candidate, fragA) {
		claimed[pair.A] = true
		constraints = append(constraints, Constraint{
			Atom:     pair.A,
			Position: fragA.Conformer[pair.B],
			RefIndex: 0,
		})
	}

	if synthonCore != nil && synthonCore.NumAtoms() > 0 {
		refMatch := chem.SubstructMatch(fragB, synthonCore)
		candMatch := chem.SubstructMatch(candidate, synthonCore)
		if refMatch != nil && candMatch != nil {
			for q := 0; q < synthonCore.NumAtoms(); q++ {
				if claimed[candMatch[q]] {
					continue
				}
				claimed[candMatch[q]] = true
				constraints = append(constraints, Constraint{
					Atom:     candMatch[q],
					Position: fragB.Conformer[refMatch[q]],
					RefIndex: 1,
				})
			}
		}
	}
	return constraints, nil
}

// ConstraintMap converts a constraint list to the map form the embedder
// consumes.
func ConstraintMap(constraints []Constraint) map[int]chem.Point3 {
	m := make(map[int]chem.Point3, len(constraints))
	for _, c := range constraints {
		m[c.Atom] = c.Position
	}
	return m
}
