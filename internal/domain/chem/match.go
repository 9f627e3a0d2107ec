package chem

// ─────────────────────────────────────────────────────────────────────────────
// Substructure matching
// ─────────────────────────────────────────────────────────────────────────────

// SubstructMatch returns the first mapping of query atom indices to target
// atom indices such that query is a subgraph of target, or nil when no match
// exists.  The result slice is indexed by query atom: result[q] = target atom
// matched to q.  Matching is deterministic: candidate target atoms are tried
// in ascending index order, so repeated calls return the same mapping.
//
// Atom compatibility requires equal element symbols (a "*" query atom matches
// any element) and equal aromaticity.  Bond compatibility requires equal
// orders, except that an aromatic bond matches single and double bonds to
// tolerate alternate Kekulé forms.
func SubstructMatch(target, query *Mol) []int {
	if query.NumAtoms() == 0 || query.NumAtoms() > target.NumAtoms() {
		return nil
	}
	order := matchOrder(query)
	mapping := make([]int, query.NumAtoms())
	for i := range mapping {
		mapping[i] = -1
	}
	used := make([]bool, target.NumAtoms())
	if matchStep(target, query, order, 0, mapping, used) {
		return mapping
	}
	return nil
}

// HasSubstructMatch reports whether query occurs as a subgraph of target.
func HasSubstructMatch(target, query *Mol) bool {
	return SubstructMatch(target, query) != nil
}

// matchOrder returns the query atoms in a connectivity-first visit order so
// that each atom after the first has at least one already-placed neighbour,
// letting the backtracking step prune early.
func matchOrder(query *Mol) []int {
	n := query.NumAtoms()
	placed := make([]bool, n)
	order := make([]int, 0, n)
	for len(order) < n {
		// Next seed: lowest-index unplaced atom.
		seed := -1
		for i := 0; i < n; i++ {
			if !placed[i] {
				seed = i
				break
			}
		}
		queue := []int{seed}
		placed[seed] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			order = append(order, cur)
			for _, nb := range query.Neighbors(cur) {
				if !placed[nb] {
					placed[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
	return order
}

func matchStep(target, query *Mol, order []int, depth int, mapping []int, used []bool) bool {
	if depth == len(order) {
		return true
	}
	q := order[depth]
	for t := 0; t < target.NumAtoms(); t++ {
		if used[t] || !atomsCompatible(&query.Atoms[q], &target.Atoms[t]) {
			continue
		}
		if !bondsCompatible(target, query, q, t, mapping) {
			continue
		}
		mapping[q] = t
		used[t] = true
		if matchStep(target, query, order, depth+1, mapping, used) {
			return true
		}
		mapping[q] = -1
		used[t] = false
	}
	return false
}

func atomsCompatible(q, t *Atom) bool {
	if q.Symbol != "*" && q.Symbol != t.Symbol {
		return false
	}
	return q.Aromatic == t.Aromatic
}

// bondsCompatible verifies that every bond from query atom q to an
// already-mapped query atom has a compatible counterpart in target.
func bondsCompatible(target, query *Mol, q, t int, mapping []int) bool {
	for _, qn := range query.Neighbors(q) {
		tm := mapping[qn]
		if tm < 0 {
			continue
		}
		qb := query.BondBetween(q, qn)
		tb := target.BondBetween(t, tm)
		if tb == nil || !bondOrdersCompatible(qb.Order, tb.Order) {
			return false
		}
	}
	return true
}

func bondOrdersCompatible(q, t BondOrder) bool {
	if q == t {
		return true
	}
	// Aromatic tolerates Kekulé single/double on either side.
	if q == BondAromatic && (t == BondSingle || t == BondDouble) {
		return true
	}
	if t == BondAromatic && (q == BondSingle || q == BondDouble) {
		return true
	}
	return false
}
