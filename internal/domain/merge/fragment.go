// Package merge defines the core domain types of the fragment-network-merges
// pipeline: screening fragments, synthons carved from them, merge candidates
// produced by network expansion, and the filter verdicts attached to each
// candidate.
package merge

import (
	"fmt"
	"strings"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fragment
// ─────────────────────────────────────────────────────────────────────────────

// Fragment is one crystallographic screening hit: a small molecule observed
// bound to the target, identified by the Fragalysis naming convention
// (e.g. "x0107_0A" against target "Mpro").
type Fragment struct {
	// Name is the fragment identifier within its target, e.g. "x0107_0A".
	Name string
	// Target is the protein target code, e.g. "Mpro", "nsp13".
	Target string
	// SMILES is the canonical SMILES of the bound ligand.
	SMILES string
	// Mol carries the crystallographic pose when structure files were loaded.
	Mol *chem.Mol
}

// NewFragment validates and canonicalises a fragment definition.  The Mol
// field is attached later by the structure loader; expansion only needs the
// SMILES.
func NewFragment(target, name, smiles string) (*Fragment, error) {
	target = strings.TrimSpace(target)
	name = strings.TrimSpace(name)
	if target == "" || name == "" {
		return nil, errors.InvalidParam("fragment target and name are required")
	}
	canonical, err := chem.CanonicalSmiles(smiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidSMILES,
			fmt.Sprintf("fragment %s/%s has invalid SMILES", target, name))
	}
	return &Fragment{Target: target, Name: name, SMILES: canonical}, nil
}

// FullName returns the target-qualified identifier, e.g. "Mpro-x0107_0A".
func (f *Fragment) FullName() string {
	return f.Target + "-" + f.Name
}

// HasPose reports whether the fragment carries 3D coordinates.
func (f *Fragment) HasPose() bool {
	return f.Mol != nil && f.Mol.HasConformer()
}

// ─────────────────────────────────────────────────────────────────────────────
// Pair naming
// ─────────────────────────────────────────────────────────────────────────────

// PairName returns the canonical identifier for an ordered fragment pair,
// used for artifact files and result keys: "<nameA>_<nameB>".
func PairName(nameA, nameB string) string {
	return nameA + "_" + nameB
}

// CandidateName returns the identifier of the i-th merge candidate of a pair:
// "<nameA>_<nameB>_<i>".
func CandidateName(nameA, nameB string, i int) string {
	return fmt.Sprintf("%s_%s_%d", nameA, nameB, i)
}

// ArtifactName returns the JSON artifact filename for a pair's expansion
// output: "<nameA>_<nameB>.json".
func ArtifactName(nameA, nameB string) string {
	return PairName(nameA, nameB) + ".json"
}
