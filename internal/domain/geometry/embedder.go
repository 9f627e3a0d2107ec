package geometry

import (
	"fmt"
	"math/rand"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// minimizeSteps is the fixed steepest-descent budget per embedding.
const minimizeSteps = 400

// ConstrainedEmbedder builds 3D conformers for merge candidates.  Constrained
// atoms are pinned to their transferred fragment coordinates; the remaining
// atoms start from seeded random positions and relax under the force field.
// A fixed seed makes every embedding reproducible run to run.
type ConstrainedEmbedder struct {
	seed int64
}

// NewConstrainedEmbedder returns an embedder whose random stream is fixed by
// seed.
func NewConstrainedEmbedder(seed int64) *ConstrainedEmbedder {
	return &ConstrainedEmbedder{seed: seed}
}

// Embed produces one conformer for mol with the given atoms pinned.
// The returned coordinate slice has one entry per atom; pinned atoms hold
// their constraint positions exactly.  Embedding fails when the molecule has
// no atoms or a constraint references a missing atom.
func (e *ConstrainedEmbedder) Embed(mol *chem.Mol, constraints map[int]chem.Point3) ([]chem.Point3, error) {
	n := mol.NumAtoms()
	if n == 0 {
		return nil, errors.New(errors.CodeEmbeddingFailed, "cannot embed an empty molecule")
	}
	for idx := range constraints {
		if idx < 0 || idx >= n {
			return nil, errors.New(errors.CodeEmbeddingFailed,
				fmt.Sprintf("constraint references atom %d of %d", idx, n))
		}
	}

	rng := rand.New(rand.NewSource(e.seed))
	coords := e.initialCoords(mol, constraints, rng)

	frozen := make(map[int]bool, len(constraints))
	for idx := range constraints {
		frozen[idx] = true
	}

	ff := NewForceField(mol)
	ff.Minimize(coords, frozen, minimizeSteps)
	return coords, nil
}

// BaselineEnergy embeds n unconstrained conformers from distinct seeded
// starting points and returns their mean relaxed energy.  It is the
// denominator of the strain ratio: how relaxed this molecule can be without
// any pose constraint.
func (e *ConstrainedEmbedder) BaselineEnergy(mol *chem.Mol, n int) (float64, error) {
	if mol.NumAtoms() == 0 {
		return 0, errors.New(errors.CodeEmbeddingFailed, "cannot embed an empty molecule")
	}
	if n < 1 {
		n = 1
	}
	ff := NewForceField(mol)
	total := 0.0
	for c := 0; c < n; c++ {
		rng := rand.New(rand.NewSource(e.seed + int64(c)))
		coords := e.initialCoords(mol, nil, rng)
		ff.Minimize(coords, nil, minimizeSteps)
		total += ff.Energy(coords)
	}
	return total / float64(n), nil
}

// initialCoords seeds starting positions: pinned atoms at their constraints,
// free atoms scattered around the constraint centroid (or the origin) inside
// a sphere proportional to molecule size.
func (e *ConstrainedEmbedder) initialCoords(mol *chem.Mol, constraints map[int]chem.Point3, rng *rand.Rand) []chem.Point3 {
	n := mol.NumAtoms()
	coords := make([]chem.Point3, n)

	var centroid chem.Point3
	if len(constraints) > 0 {
		for _, p := range constraints {
			centroid = centroid.Add(p)
		}
		centroid = centroid.Scale(1 / float64(len(constraints)))
	}

	// Scatter radius grows with atom count so large molecules do not start
	// hopelessly compressed.
	radius := 1.0 + 0.3*float64(n)
	for i := 0; i < n; i++ {
		if p, ok := constraints[i]; ok {
			coords[i] = p
			continue
		}
		coords[i] = centroid.Add(chem.Point3{
			X: (rng.Float64()*2 - 1) * radius,
			Y: (rng.Float64()*2 - 1) * radius,
			Z: (rng.Float64()*2 - 1) * radius,
		})
	}
	return coords
}
