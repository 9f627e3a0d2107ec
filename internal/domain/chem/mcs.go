package chem

// ─────────────────────────────────────────────────────────────────────────────
// Maximum common substructure
// ─────────────────────────────────────────────────────────────────────────────

// AtomPair maps an atom index in molecule A to an atom index in molecule B.
type AtomPair struct {
	A, B int
}

// FindMCS computes a maximum connected common substructure between two
// molecules and returns the atom correspondence as a list of pairs.  The
// search grows a mapping outward from every compatible seed pair and keeps
// the largest mapping found; ties are broken in favour of the mapping found
// first, which makes the result deterministic for fixed inputs.
//
// The search is exponential in the worst case but the pipeline only ever
// aligns fragment-sized molecules (tens of atoms), where it completes in
// microseconds.
func FindMCS(a, b *Mol) []AtomPair {
	var best []AtomPair
	for i := 0; i < a.NumAtoms(); i++ {
		for j := 0; j < b.NumAtoms(); j++ {
			if !atomsCompatible(&a.Atoms[i], &b.Atoms[j]) {
				continue
			}
			mapA := make(map[int]int)
			mapB := make(map[int]int)
			mapA[i] = j
			mapB[j] = i
			cur := []AtomPair{{A: i, B: j}}
			grown := growMapping(a, b, cur, mapA, mapB)
			if len(grown) > len(best) {
				best = grown
			}
		}
	}
	return best
}

// growMapping extends the current mapping with the best single frontier pair
// and recurses, returning the largest mapping reachable.  The frontier is the
// set of unmapped atom pairs adjacent (with compatible bonds) to mapped pairs.
func growMapping(a, b *Mol, cur []AtomPair, mapA, mapB map[int]int) []AtomPair {
	best := append([]AtomPair(nil), cur...)

	for _, p := range cur {
		for _, na := range a.Neighbors(p.A) {
			if _, ok := mapA[na]; ok {
				continue
			}
			for _, nb := range b.Neighbors(p.B) {
				if _, ok := mapB[nb]; ok {
					continue
				}
				if !atomsCompatible(&a.Atoms[na], &b.Atoms[nb]) {
					continue
				}
				if !extensionConsistent(a, b, na, nb, mapA) {
					continue
				}
				mapA[na] = nb
				mapB[nb] = na
				grown := growMapping(a, b, append(cur, AtomPair{A: na, B: nb}), mapA, mapB)
				if len(grown) > len(best) {
					best = grown
				}
				delete(mapA, na)
				delete(mapB, nb)
			}
		}
	}
	return best
}

// extensionConsistent checks that adding the pair (na, nb) preserves bond
// correspondence: every bond from na to a mapped atom of A must have a
// compatible bond between nb and that atom's image in B, and vice versa.
func extensionConsistent(a, b *Mol, na, nb int, mapA map[int]int) bool {
	for ai, bi := range mapA {
		ab := a.BondBetween(na, ai)
		bb := b.BondBetween(nb, bi)
		if (ab == nil) != (bb == nil) {
			return false
		}
		if ab != nil && !bondOrdersCompatible(ab.Order, bb.Order) {
			return false
		}
	}
	return true
}

// MCSRatio returns the fraction of the smaller molecule's heavy atoms covered
// by the maximum common substructure with the other molecule.  It is used as
// a cheap alignment-quality diagnostic.
func MCSRatio(a, b *Mol) float64 {
	pairs := FindMCS(a, b)
	small := a.HeavyAtomCount()
	if h := b.HeavyAtomCount(); h < small {
		small = h
	}
	if small == 0 {
		return 0
	}
	return float64(len(pairs)) / float64(small)
}
