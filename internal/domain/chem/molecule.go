// Package chem provides the molecular graph model and the simplified
// cheminformatics toolkit used across the fragment-network-merges pipeline:
// SMILES parsing and canonical writing, substructure and maximum-common-
// substructure search, MDL mol / SD file handling, and PDB coordinate
// extraction.  All algorithms are deliberately simplified pure-Go
// implementations; a production deployment would delegate to RDKit.
package chem

import (
	"fmt"
	"math"

	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Atom, Bond, and geometry primitives
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder enumerates the bond orders the toolkit understands.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Point3 is a position in 3D Cartesian space, in Ångström.
type Point3 struct {
	X, Y, Z float64
}

// Sub returns p - q.
func (p Point3) Sub(q Point3) Point3 { return Point3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Add returns p + q.
func (p Point3) Add(q Point3) Point3 { return Point3{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

// Scale returns p scaled by s.
func (p Point3) Scale(s float64) Point3 { return Point3{p.X * s, p.Y * s, p.Z * s} }

// Dot returns the dot product p·q.
func (p Point3) Dot(q Point3) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }

// Norm returns the Euclidean length of p.
func (p Point3) Norm() float64 { return math.Sqrt(p.Dot(p)) }

// Distance returns the Euclidean distance between p and q.
func (p Point3) Distance(q Point3) float64 { return p.Sub(q).Norm() }

// Atom is a node in the molecular graph.  Implicit hydrogens are tracked as a
// count rather than explicit atoms, following the usual cheminformatics
// convention.
type Atom struct {
	Symbol    string // element symbol, e.g. "C", "Cl", "Xe"
	Aromatic  bool
	Charge    int
	HCount    int  // implicit hydrogen count
	HExplicit bool // HCount was set explicitly (bracket atom), not derived
}

// AtomicNumber returns the proton count for the atom's element, or 0 for an
// unrecognised symbol.
func (a *Atom) AtomicNumber() int { return atomicNumbers[a.Symbol] }

// IsHeavy reports whether the atom is a non-hydrogen atom.
func (a *Atom) IsHeavy() bool { return a.Symbol != "H" }

// Bond is an edge in the molecular graph connecting atom indices From and To.
type Bond struct {
	From, To int
	Order    BondOrder
}

// Other returns the bond endpoint opposite to idx.
func (b *Bond) Other(idx int) int {
	if b.From == idx {
		return b.To
	}
	return b.From
}

// ─────────────────────────────────────────────────────────────────────────────
// Mol
// ─────────────────────────────────────────────────────────────────────────────

// Mol is a molecular graph with an optional single conformer.  Atom and bond
// slices are index-addressed; Conformer, when non-nil, holds one coordinate
// per atom.
type Mol struct {
	Name      string
	Atoms     []Atom
	Bonds     []Bond
	Conformer []Point3 // nil when the molecule has no 3D coordinates

	// adjacency mirrors Bonds as per-atom neighbour lists.  It is maintained
	// eagerly by every mutation so reads never write: parsed molecules are
	// shared across the filter worker pool.
	adjacency [][]int
}

// NewMol returns an empty molecule.
func NewMol() *Mol { return &Mol{} }

// NumAtoms returns the number of (heavy, explicit) atoms in the graph.
func (m *Mol) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the number of bonds in the graph.
func (m *Mol) NumBonds() int { return len(m.Bonds) }

// HeavyAtomCount returns the number of non-hydrogen atoms.
func (m *Mol) HeavyAtomCount() int {
	n := 0
	for i := range m.Atoms {
		if m.Atoms[i].IsHeavy() {
			n++
		}
	}
	return n
}

// HasConformer reports whether the molecule carries 3D coordinates.
func (m *Mol) HasConformer() bool { return len(m.Conformer) == len(m.Atoms) && len(m.Atoms) > 0 }

// AddAtom appends an atom and returns its index.
func (m *Mol) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adjacency = append(m.adjacency, nil)
	return len(m.Atoms) - 1
}

// AddBond appends a bond between existing atom indices.
func (m *Mol) AddBond(from, to int, order BondOrder) error {
	if from < 0 || from >= len(m.Atoms) || to < 0 || to >= len(m.Atoms) {
		return errors.New(errors.CodeAtomIndexOutOfRange,
			fmt.Sprintf("bond endpoints %d-%d out of range for %d atoms", from, to, len(m.Atoms)))
	}
	if from == to {
		return errors.New(errors.CodeInvalidParam, "self-bond is not permitted")
	}
	m.Bonds = append(m.Bonds, Bond{From: from, To: to, Order: order})
	m.adjacency[from] = append(m.adjacency[from], to)
	m.adjacency[to] = append(m.adjacency[to], from)
	return nil
}

// Neighbors returns the atom indices bonded to idx.  The returned slice is
// shared; callers must not modify it.  Neighbors never mutates the molecule,
// so concurrent reads on a shared Mol are safe.
func (m *Mol) Neighbors(idx int) []int {
	return m.adjacency[idx]
}

// rebuildAdjacency recomputes the neighbour lists from Bonds.  Builders that
// assemble Atoms and Bonds directly must call it before the molecule is used.
func (m *Mol) rebuildAdjacency() {
	m.adjacency = make([][]int, len(m.Atoms))
	for _, b := range m.Bonds {
		m.adjacency[b.From] = append(m.adjacency[b.From], b.To)
		m.adjacency[b.To] = append(m.adjacency[b.To], b.From)
	}
}

// BondBetween returns the bond connecting a and b, or nil if none exists.
func (m *Mol) BondBetween(a, b int) *Bond {
	for i := range m.Bonds {
		bd := &m.Bonds[i]
		if (bd.From == a && bd.To == b) || (bd.From == b && bd.To == a) {
			return bd
		}
	}
	return nil
}

// Degree returns the number of explicit bonds at idx.
func (m *Mol) Degree(idx int) int { return len(m.Neighbors(idx)) }

// Copy returns a deep copy of the molecule.
func (m *Mol) Copy() *Mol {
	cp := &Mol{Name: m.Name}
	cp.Atoms = append([]Atom(nil), m.Atoms...)
	cp.Bonds = append([]Bond(nil), m.Bonds...)
	if m.Conformer != nil {
		cp.Conformer = append([]Point3(nil), m.Conformer...)
	}
	cp.rebuildAdjacency()
	return cp
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph surgery
// ─────────────────────────────────────────────────────────────────────────────

// RemoveAtoms returns a new molecule with the given atom indices (and every
// bond touching them) removed.  Remaining atoms are re-indexed densely;
// conformer coordinates follow their atoms.  Indices out of range produce an
// error.
func (m *Mol) RemoveAtoms(indices []int) (*Mol, error) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(m.Atoms) {
			return nil, errors.New(errors.CodeAtomIndexOutOfRange,
				fmt.Sprintf("atom index %d out of range for %d atoms", i, len(m.Atoms)))
		}
		drop[i] = true
	}

	out := &Mol{Name: m.Name}
	remap := make([]int, len(m.Atoms))
	for i := range m.Atoms {
		if drop[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(out.Atoms)
		out.Atoms = append(out.Atoms, m.Atoms[i])
		if m.HasConformer() {
			out.Conformer = append(out.Conformer, m.Conformer[i])
		}
	}
	for _, b := range m.Bonds {
		if remap[b.From] >= 0 && remap[b.To] >= 0 {
			out.Bonds = append(out.Bonds, Bond{From: remap[b.From], To: remap[b.To], Order: b.Order})
		}
	}
	out.rebuildAdjacency()
	return out, nil
}

// CombineMols returns the disjoint union of a and b: all atoms of a followed
// by all atoms of b with bond indices shifted.  Conformers are concatenated
// when both inputs carry them; otherwise the result has none.
func CombineMols(a, b *Mol) *Mol {
	out := &Mol{Name: a.Name}
	out.Atoms = append(append([]Atom(nil), a.Atoms...), b.Atoms...)
	out.Bonds = append([]Bond(nil), a.Bonds...)
	offset := len(a.Atoms)
	for _, bd := range b.Bonds {
		out.Bonds = append(out.Bonds, Bond{From: bd.From + offset, To: bd.To + offset, Order: bd.Order})
	}
	if a.HasConformer() && b.HasConformer() {
		out.Conformer = append(append([]Point3(nil), a.Conformer...), b.Conformer...)
	}
	out.rebuildAdjacency()
	return out
}

// ConnectedComponents returns the atom-index sets of each connected component,
// ordered by their smallest member.
func (m *Mol) ConnectedComponents() [][]int {
	seen := make([]bool, len(m.Atoms))
	var comps [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		var comp []int
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			for _, nb := range m.Neighbors(cur) {
				if !seen[nb] {
					seen[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// ─────────────────────────────────────────────────────────────────────────────
// Descriptors (simplified)
// ─────────────────────────────────────────────────────────────────────────────

// MolecularWeight returns the molecular weight including implicit hydrogens.
func (m *Mol) MolecularWeight() float64 {
	w := 0.0
	for i := range m.Atoms {
		w += atomicWeights[m.Atoms[i].Symbol]
		w += float64(m.Atoms[i].HCount) * atomicWeights["H"]
	}
	return w
}

// RotatableBondCount counts single, non-ring bonds between two atoms that each
// carry at least one further heavy neighbour.  Amide bonds are not excluded;
// this matches the simplified descriptor used throughout the pipeline.
func (m *Mol) RotatableBondCount() int {
	ring := m.ringBonds()
	n := 0
	for i, b := range m.Bonds {
		if b.Order != BondSingle || ring[i] {
			continue
		}
		if m.Degree(b.From) > 1 && m.Degree(b.To) > 1 {
			n++
		}
	}
	return n
}

// LargestRingSize returns the size of the largest smallest-ring any bond
// participates in, or 0 for acyclic molecules.
func (m *Mol) LargestRingSize() int {
	max := 0
	for i := range m.Bonds {
		if size := m.smallestRingThrough(i); size > max {
			max = size
		}
	}
	return max
}

// ringBonds reports, per bond index, whether the bond lies in a ring.
func (m *Mol) ringBonds() []bool {
	in := make([]bool, len(m.Bonds))
	for i := range m.Bonds {
		in[i] = m.smallestRingThrough(i) > 0
	}
	return in
}

// smallestRingThrough returns the size of the smallest ring containing bond i,
// or 0 when the bond is acyclic.  It runs a BFS from one endpoint to the other
// with the bond itself removed.
func (m *Mol) smallestRingThrough(i int) int {
	b := m.Bonds[i]
	dist := make([]int, len(m.Atoms))
	for j := range dist {
		dist[j] = -1
	}
	dist[b.From] = 0
	queue := []int{b.From}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range m.Neighbors(cur) {
			if cur == b.From && nb == b.To || cur == b.To && nb == b.From {
				continue // skip the bond being tested
			}
			if dist[nb] < 0 {
				dist[nb] = dist[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	if dist[b.To] < 0 {
		return 0
	}
	return dist[b.To] + 1
}

// ─────────────────────────────────────────────────────────────────────────────
// Element tables
// ─────────────────────────────────────────────────────────────────────────────

var atomicNumbers = map[string]int{
	"H": 1, "B": 5, "C": 6, "N": 7, "O": 8, "F": 9,
	"Si": 14, "P": 15, "S": 16, "Cl": 17, "Br": 35, "I": 53,
	"Xe": 54,
}

var atomicWeights = map[string]float64{
	"H": 1.008, "B": 10.81, "C": 12.011, "N": 14.007, "O": 15.999, "F": 18.998,
	"Si": 28.085, "P": 30.974, "S": 32.06, "Cl": 35.45, "Br": 79.904, "I": 126.904,
	"Xe": 131.293,
}

// defaultValences drives implicit hydrogen assignment for organic-subset
// atoms written without brackets.
var defaultValences = map[string]int{
	"B": 3, "C": 4, "N": 3, "O": 2, "P": 3, "S": 2,
	"F": 1, "Cl": 1, "Br": 1, "I": 1,
}
