// Package geometry implements the 3D stages of the filter pipeline: MCS-based
// coordinate transfer from fragment poses, clash detection against ligand and
// receptor atoms, constrained conformer embedding, and a simplified force
// field for strain evaluation.  The force field is a deliberately small
// surrogate (bond stretch, 1-3 angle distance, nonbonded repulsion); a
// production deployment would use RDKit's UFF or MMFF implementations.
package geometry

import (
	"math"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Force field parameters
// ─────────────────────────────────────────────────────────────────────────────

const (
	bondForceConst     = 300.0 // kcal/mol/Å² surrogate
	angleForceConst    = 60.0
	nonbondForceConst  = 40.0
	nonbondCutoff      = 2.0 // Å, repulsion engages below this separation
	tetrahedralAngle   = 109.47 * math.Pi / 180
	trigonalAngle      = 120.0 * math.Pi / 180
	linearMinSeparator = 1e-9
)

// idealBondLength returns the target length for a bond, by order.  Element
// effects are folded into a single per-order constant; the strain ratio this
// feeds is threshold-based and insensitive to small systematic offsets.
func idealBondLength(order chem.BondOrder) float64 {
	switch order {
	case chem.BondDouble:
		return 1.34
	case chem.BondTriple:
		return 1.20
	case chem.BondAromatic:
		return 1.39
	default:
		return 1.52
	}
}

// angleTerm is a 1-3 distance restraint standing in for an explicit angle
// bend: the pair of atoms bonded to a common centre is pushed toward the
// distance implied by the centre's preferred angle.
type angleTerm struct {
	i, k  int
	ideal float64
}

// ForceField holds the precomputed term lists for one molecular topology.
// Building it once and evaluating it against many coordinate sets keeps the
// embedder's inner loop allocation-free.
type ForceField struct {
	mol      *chem.Mol
	bonds    []bondTerm
	angles   []angleTerm
	nonbond  [][2]int
	excluded map[[2]int]bool
}

type bondTerm struct {
	i, j  int
	ideal float64
}

// NewForceField derives the term lists from the molecular graph.
func NewForceField(mol *chem.Mol) *ForceField {
	ff := &ForceField{mol: mol, excluded: map[[2]int]bool{}}

	for _, b := range mol.Bonds {
		ff.bonds = append(ff.bonds, bondTerm{i: b.From, j: b.To, ideal: idealBondLength(b.Order)})
		ff.excluded[orderedPair(b.From, b.To)] = true
	}

	// Angle terms: one per bonded triple i-j-k.
	for j := 0; j < mol.NumAtoms(); j++ {
		nbrs := mol.Neighbors(j)
		for a := 0; a < len(nbrs); a++ {
			for b := a + 1; b < len(nbrs); b++ {
				i, k := nbrs[a], nbrs[b]
				theta := tetrahedralAngle
				if mol.Atoms[j].Aromatic {
					theta = trigonalAngle
				}
				l1 := idealBondLength(mol.BondBetween(i, j).Order)
				l2 := idealBondLength(mol.BondBetween(j, k).Order)
				ideal := math.Sqrt(l1*l1 + l2*l2 - 2*l1*l2*math.Cos(theta))
				ff.angles = append(ff.angles, angleTerm{i: i, k: k, ideal: ideal})
				ff.excluded[orderedPair(i, k)] = true
			}
		}
	}

	// Nonbonded pairs: everything not bonded and not 1-3.
	for i := 0; i < mol.NumAtoms(); i++ {
		for j := i + 1; j < mol.NumAtoms(); j++ {
			if !ff.excluded[orderedPair(i, j)] {
				ff.nonbond = append(ff.nonbond, [2]int{i, j})
			}
		}
	}
	return ff
}

func orderedPair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Energy evaluates the force field for one coordinate set.
func (f *ForceField) Energy(coords []chem.Point3) float64 {
	e := 0.0
	for _, b := range f.bonds {
		d := coords[b.i].Distance(coords[b.j]) - b.ideal
		e += bondForceConst * d * d
	}
	for _, a := range f.angles {
		d := coords[a.i].Distance(coords[a.k]) - a.ideal
		e += angleForceConst * d * d
	}
	for _, p := range f.nonbond {
		d := coords[p[0]].Distance(coords[p[1]])
		if d < nonbondCutoff {
			v := nonbondCutoff - d
			e += nonbondForceConst * v * v
		}
	}
	return e
}

// Gradient accumulates dE/dx into grad, which must have one entry per atom.
// Entries are zeroed first.
func (f *ForceField) Gradient(coords []chem.Point3, grad []chem.Point3) {
	for i := range grad {
		grad[i] = chem.Point3{}
	}
	pairForce := func(i, j int, coeff, ideal float64) {
		delta := coords[i].Sub(coords[j])
		d := delta.Norm()
		if d < linearMinSeparator {
			return
		}
		// dE/dd = 2*coeff*(d-ideal); chain rule through the unit vector.
		scale := 2 * coeff * (d - ideal) / d
		g := delta.Scale(scale)
		grad[i] = grad[i].Add(g)
		grad[j] = grad[j].Sub(g)
	}
	for _, b := range f.bonds {
		pairForce(b.i, b.j, bondForceConst, b.ideal)
	}
	for _, a := range f.angles {
		pairForce(a.i, a.k, angleForceConst, a.ideal)
	}
	for _, p := range f.nonbond {
		d := coords[p[0]].Distance(coords[p[1]])
		if d < nonbondCutoff {
			pairForce(p[0], p[1], nonbondForceConst, nonbondCutoff)
		}
	}
}

// Minimize relaxes coords by steepest descent.  Atoms whose index appears in
// frozen keep their input positions exactly.  The step count and learning
// rate are fixed, so minimisation is deterministic.
func (f *ForceField) Minimize(coords []chem.Point3, frozen map[int]bool, steps int) {
	grad := make([]chem.Point3, len(coords))
	const rate = 0.0005
	for s := 0; s < steps; s++ {
		f.Gradient(coords, grad)
		for i := range coords {
			if frozen[i] {
				continue
			}
			coords[i] = coords[i].Sub(grad[i].Scale(rate))
		}
	}
}
