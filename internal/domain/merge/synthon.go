package merge

import (
	"fmt"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// AttachmentSymbol marks the open valence of a synthon in the fragment
// network: a xenon placeholder atom that stands in for the bond broken when
// the parent fragment was fragmented.
const AttachmentSymbol = "Xe"

// Synthon is a constituent piece of a fragment carved out by the fragment
// network, carrying exactly one xenon attachment point where it joined the
// rest of the parent molecule.
type Synthon struct {
	// SMILES is the canonical synthon SMILES, e.g. "[Xe]c1ccco1".
	SMILES string
	// mol is the parsed form, retained for substructure work.
	mol *chem.Mol
}

// NewSynthon validates a synthon SMILES and returns its canonical form.
// A valid synthon is a single connected piece with exactly one xenon
// attachment atom and at least one further heavy atom.
func NewSynthon(smiles string) (*Synthon, error) {
	mol, err := chem.MolFromSmiles(smiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidSynthon, "synthon SMILES does not parse")
	}

	xenons := 0
	for i := range mol.Atoms {
		if mol.Atoms[i].Symbol == AttachmentSymbol {
			xenons++
		}
	}
	if xenons != 1 {
		return nil, errors.New(errors.CodeInvalidSynthon,
			fmt.Sprintf("synthon must carry exactly one [%s] attachment, found %d", AttachmentSymbol, xenons)).
			WithDetail(smiles)
	}
	if len(mol.ConnectedComponents()) != 1 {
		return nil, errors.New(errors.CodeInvalidSynthon,
			"synthon must be a single connected piece").WithDetail(smiles)
	}
	if mol.HeavyAtomCount() < 2 {
		// The xenon itself counts as heavy; require at least one real atom.
		return nil, errors.New(errors.CodeInvalidSynthon,
			"synthon carries no atoms besides the attachment point").WithDetail(smiles)
	}

	return &Synthon{SMILES: chem.MolToSmiles(mol), mol: mol}, nil
}

// Mol returns the parsed synthon graph.
func (s *Synthon) Mol() *chem.Mol { return s.mol }

// Core returns the synthon with the xenon attachment removed, which is the
// substructure expected to appear verbatim in any expansion candidate built
// from this synthon.
func (s *Synthon) Core() (*chem.Mol, error) {
	var drop []int
	for i := range s.mol.Atoms {
		if s.mol.Atoms[i].Symbol == AttachmentSymbol {
			drop = append(drop, i)
		}
	}
	return s.mol.RemoveAtoms(drop)
}

// HeavyAtoms returns the heavy-atom count excluding the xenon placeholder.
func (s *Synthon) HeavyAtoms() int {
	return s.mol.HeavyAtomCount() - 1
}
