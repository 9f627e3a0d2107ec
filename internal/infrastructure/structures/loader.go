// Package structures loads fragment poses and receptor structures from a
// Fragalysis-style data directory:
//
//	<dir>/<target>/aligned/<target>-<fragment>/<target>-<fragment>.mol
//	<dir>/<target>/aligned/<target>-<fragment>/<target>-<fragment>_apo.pdb
package structures

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// Loader reads ligand and receptor structure files for named fragments.
type Loader struct {
	dir    string
	logger logging.Logger
}

// NewLoader builds a loader rooted at the fragment data directory.
func NewLoader(dir string, log logging.Logger) *Loader {
	return &Loader{dir: dir, logger: log.Named("structures")}
}

func (l *Loader) fragmentDir(target, name string) string {
	full := fmt.Sprintf("%s-%s", target, name)
	return filepath.Join(l.dir, target, "aligned", full)
}

// LoadFragment reads a fragment's crystallographic pose from its mol file and
// returns a Fragment whose SMILES is derived from the connection table.
func (l *Loader) LoadFragment(target, name string) (*merge.Fragment, error) {
	path := filepath.Join(l.fragmentDir(target, name), fmt.Sprintf("%s-%s.mol", target, name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "fragment structure "+path)
	}

	mol, err := chem.MolFromMolBlock(string(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidMolFile, path)
	}

	frag, err := merge.NewFragment(target, name, chem.MolToSmiles(mol))
	if err != nil {
		return nil, err
	}
	frag.Mol = mol

	l.logger.Debug("loaded fragment pose",
		logging.String("fragment", frag.FullName()),
		logging.Int("heavy_atoms", mol.HeavyAtomCount()),
	)
	return frag, nil
}

// LoadReceptor reads the apo protein heavy atoms aligned to the given
// fragment.
func (l *Loader) LoadReceptor(target, name string) (*chem.Mol, error) {
	path := filepath.Join(l.fragmentDir(target, name), fmt.Sprintf("%s-%s_apo.pdb", target, name))
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "receptor structure "+path)
	}
	defer f.Close()

	receptor, err := chem.ReadPDBHeavyAtoms(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidPDBFile, path)
	}
	receptor.Name = fmt.Sprintf("%s-%s_apo", target, name)
	return receptor, nil
}

// LoadPair loads both fragments' poses and the receptor aligned to the first.
// The receptor is optional: a pair without an apo file still filters, just
// without the overlap stage's protein check.
func (l *Loader) LoadPair(target, nameA, nameB string) (fragA, fragB *merge.Fragment, receptor *chem.Mol, err error) {
	fragA, err = l.LoadFragment(target, nameA)
	if err != nil {
		return nil, nil, nil, err
	}
	fragB, err = l.LoadFragment(target, nameB)
	if err != nil {
		return nil, nil, nil, err
	}

	receptor, rerr := l.LoadReceptor(target, nameA)
	if rerr != nil {
		l.logger.Warn("no receptor structure for pair, skipping protein overlap",
			logging.String("target", target),
			logging.String("fragment", nameA),
			logging.Err(rerr),
		)
		receptor = nil
	}
	return fragA, fragB, receptor, nil
}
