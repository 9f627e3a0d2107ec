package chem

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// SMILES parser
// ─────────────────────────────────────────────────────────────────────────────

// MolFromSmiles parses a SMILES string into a molecular graph.  The parser
// covers the subset of SMILES the fragment network emits: organic-subset
// atoms, bracket atoms with charge and explicit hydrogens (stereo and isotope
// annotations are accepted and discarded), branches, ring closures including
// the %nn form, and dot-separated components.
func MolFromSmiles(smiles string) (*Mol, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.New(errors.CodeInvalidSMILES, "empty SMILES string")
	}

	p := &smilesParser{input: smiles, mol: NewMol(), ringBonds: map[int]ringOpen{}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if len(p.ringBonds) != 0 {
		return nil, errors.New(errors.CodeInvalidSMILES,
			fmt.Sprintf("unclosed ring bond in %q", smiles))
	}
	p.assignImplicitHydrogens()
	return p.mol, nil
}

type ringOpen struct {
	atom  int
	order BondOrder // 0 when no explicit bond symbol preceded the digit
}

type smilesParser struct {
	input     string
	pos       int
	mol       *Mol
	prev      int // index of the previous atom, -1 at component start
	stack     []int
	pending   BondOrder // explicit bond symbol awaiting the next atom, 0 if none
	ringBonds map[int]ringOpen
}

func (p *smilesParser) errf(format string, args ...interface{}) error {
	return errors.New(errors.CodeInvalidSMILES,
		fmt.Sprintf(format, args...)).WithDetail(fmt.Sprintf("smiles=%s pos=%d", p.input, p.pos))
}

func (p *smilesParser) parse() error {
	p.prev = -1
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.errf("branch open with no preceding atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.errf("unmatched branch close")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			if p.pending != 0 {
				return p.errf("bond symbol before dot")
			}
			p.prev = -1
			p.pos++
		case c == '-':
			p.pending = BondSingle
			p.pos++
		case c == '=':
			p.pending = BondDouble
			p.pos++
		case c == '#':
			p.pending = BondTriple
			p.pos++
		case c == ':':
			p.pending = BondAromatic
			p.pos++
		case c == '/' || c == '\\':
			// Cis/trans markers are treated as plain single bonds.
			p.pending = BondSingle
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.ringClosure(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.input) {
				return p.errf("truncated %%nn ring closure")
			}
			d1, d2 := p.input[p.pos+1], p.input[p.pos+2]
			if d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
				return p.errf("malformed %%nn ring closure")
			}
			if err := p.ringClosure(int(d1-'0')*10 + int(d2-'0')); err != nil {
				return err
			}
			p.pos += 3
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.stack) != 0 {
		return p.errf("unclosed branch")
	}
	if p.pending != 0 {
		return p.errf("dangling bond symbol")
	}
	return nil
}

// ringClosure opens or closes a ring bond numbered n.
func (p *smilesParser) ringClosure(n int) error {
	if p.prev < 0 {
		return p.errf("ring closure with no preceding atom")
	}
	open, ok := p.ringBonds[n]
	if !ok {
		p.ringBonds[n] = ringOpen{atom: p.prev, order: p.pending}
		p.pending = 0
		return nil
	}
	delete(p.ringBonds, n)
	order := open.order
	if order == 0 {
		order = p.pending
	}
	if order == 0 {
		if p.mol.Atoms[open.atom].Aromatic && p.mol.Atoms[p.prev].Aromatic {
			order = BondAromatic
		} else {
			order = BondSingle
		}
	}
	p.pending = 0
	return p.mol.AddBond(open.atom, p.prev, order)
}

// attach adds the freshly-parsed atom to the graph and bonds it to the
// previous atom using any pending bond symbol.
func (p *smilesParser) attach(a Atom) error {
	idx := p.mol.AddAtom(a)
	if p.prev >= 0 {
		order := p.pending
		if order == 0 {
			if p.mol.Atoms[p.prev].Aromatic && a.Aromatic {
				order = BondAromatic
			} else {
				order = BondSingle
			}
		}
		if err := p.mol.AddBond(p.prev, idx, order); err != nil {
			return err
		}
	}
	p.pending = 0
	p.prev = idx
	return nil
}

// organicAtom parses a bare (non-bracket) organic-subset atom.
func (p *smilesParser) organicAtom() error {
	rest := p.input[p.pos:]
	// Two-character elements first.
	for _, sym := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, sym) {
			p.pos += 2
			return p.attach(Atom{Symbol: sym})
		}
	}
	c := rest[0]
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		p.pos++
		return p.attach(Atom{Symbol: string(c)})
	case 'b', 'c', 'n', 'o', 'p', 's':
		p.pos++
		return p.attach(Atom{Symbol: strings.ToUpper(string(c)), Aromatic: true})
	case '*':
		p.pos++
		return p.attach(Atom{Symbol: "*"})
	}
	return p.errf("unexpected character %q", string(c))
}

// bracketAtom parses a [....] atom: optional isotope, element symbol,
// optional stereo (@/@@, discarded), optional H count, optional charge.
func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.input[p.pos:], ']')
	if end < 0 {
		return p.errf("unterminated bracket atom")
	}
	body := p.input[p.pos+1 : p.pos+end]
	p.pos += end + 1

	i := 0
	// Isotope prefix (discarded).
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i >= len(body) {
		return p.errf("bracket atom missing element symbol")
	}

	// Element symbol: uppercase letter optionally followed by lowercase, or a
	// lowercase aromatic symbol.
	var sym string
	aromatic := false
	c := body[i]
	switch {
	case c >= 'A' && c <= 'Z':
		sym = string(c)
		i++
		if i < len(body) && body[i] >= 'a' && body[i] <= 'z' && body[i] != 'h' {
			two := sym + string(body[i])
			if _, ok := atomicNumbers[two]; ok {
				sym = two
				i++
			}
		}
	case c == 'c' || c == 'n' || c == 'o' || c == 's' || c == 'p' || c == 'b':
		sym = strings.ToUpper(string(c))
		aromatic = true
		i++
	case c == '*':
		sym = "*"
		i++
	default:
		return p.errf("invalid bracket atom element in [%s]", body)
	}

	atom := Atom{Symbol: sym, Aromatic: aromatic, HExplicit: true}

	for i < len(body) {
		switch body[i] {
		case '@': // stereo, discarded
			i++
		case 'H':
			i++
			n := 1
			if i < len(body) && body[i] >= '0' && body[i] <= '9' {
				n = int(body[i] - '0')
				i++
			}
			atom.HCount = n
		case '+', '-':
			sign := 1
			if body[i] == '-' {
				sign = -1
			}
			i++
			n := 1
			if i < len(body) && body[i] >= '0' && body[i] <= '9' {
				n = int(body[i] - '0')
				i++
			} else {
				// ++ / -- repeats
				for i < len(body) && (body[i] == '+' || body[i] == '-') {
					n++
					i++
				}
			}
			atom.Charge = sign * n
		default:
			return p.errf("unexpected %q in bracket atom [%s]", string(body[i]), body)
		}
	}
	return p.attach(atom)
}

// assignImplicitHydrogens fills HCount for organic-subset atoms written
// without brackets.  Aromatic bonds contribute 1.5 to the valence sum.
func (p *smilesParser) assignImplicitHydrogens() {
	sums := make([]float64, len(p.mol.Atoms))
	for _, b := range p.mol.Bonds {
		v := float64(b.Order)
		if b.Order == BondAromatic {
			v = 1.5
		}
		sums[b.From] += v
		sums[b.To] += v
	}
	for i := range p.mol.Atoms {
		a := &p.mol.Atoms[i]
		if a.HExplicit {
			continue
		}
		val, ok := defaultValences[a.Symbol]
		if !ok {
			continue
		}
		h := val - int(math.Ceil(sums[i]))
		if h < 0 {
			h = 0
		}
		a.HCount = h
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Canonical ranking
// ─────────────────────────────────────────────────────────────────────────────

// CanonicalRanks assigns each atom a rank such that graph-equivalent inputs
// produce identical rank orderings regardless of atom numbering.  Ranks are
// computed by iterative neighbourhood refinement of an initial invariant
// (element, aromaticity, charge, degree, hydrogen count); remaining ties are
// split deterministically and re-refined.
func CanonicalRanks(m *Mol) []int {
	n := m.NumAtoms()
	if n == 0 {
		return nil
	}

	inv := make([]string, n)
	for i := range m.Atoms {
		a := &m.Atoms[i]
		ar := 0
		if a.Aromatic {
			ar = 1
		}
		inv[i] = fmt.Sprintf("%03d|%d|%+03d|%d|%d", a.AtomicNumber(), ar, a.Charge, m.Degree(i), a.HCount)
	}
	ranks := ranksFromInvariants(inv)

	for {
		ranks = refineRanks(m, ranks)
		if distinct(ranks) == n {
			return ranks
		}
		// Split the lowest tied class at its lowest-index member.
		split := -1
		for r := 0; r < n && split < 0; r++ {
			var members []int
			for i, rk := range ranks {
				if rk == r {
					members = append(members, i)
				}
			}
			if len(members) > 1 {
				split = members[0]
			}
		}
		if split < 0 {
			return ranks
		}
		for i := range ranks {
			if i != split && ranks[i] >= ranks[split] {
				ranks[i]++
			}
		}
		ranks = normalizeRanks(ranks)
	}
}

// refineRanks iterates neighbourhood refinement until the partition is stable.
func refineRanks(m *Mol, ranks []int) []int {
	n := len(ranks)
	for {
		inv := make([]string, n)
		for i := 0; i < n; i++ {
			nbr := make([]int, 0, 4)
			for _, j := range m.Neighbors(i) {
				nbr = append(nbr, ranks[j])
			}
			sort.Ints(nbr)
			inv[i] = fmt.Sprintf("%05d|%v", ranks[i], nbr)
		}
		next := ranksFromInvariants(inv)
		if distinct(next) == distinct(ranks) {
			return next
		}
		ranks = next
	}
}

func ranksFromInvariants(inv []string) []int {
	uniq := append([]string(nil), inv...)
	sort.Strings(uniq)
	uniq = dedupeStrings(uniq)
	pos := make(map[string]int, len(uniq))
	for i, s := range uniq {
		pos[s] = i
	}
	ranks := make([]int, len(inv))
	for i, s := range inv {
		ranks[i] = pos[s]
	}
	return ranks
}

func normalizeRanks(ranks []int) []int {
	uniq := append([]int(nil), ranks...)
	sort.Ints(uniq)
	uniq = dedupeInts(uniq)
	pos := make(map[int]int, len(uniq))
	for i, r := range uniq {
		pos[r] = i
	}
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = pos[r]
	}
	return out
}

func distinct(ranks []int) int {
	set := map[int]struct{}{}
	for _, r := range ranks {
		set[r] = struct{}{}
	}
	return len(set)
}

func dedupeStrings(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func dedupeInts(s []int) []int {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Canonical SMILES writer
// ─────────────────────────────────────────────────────────────────────────────

// MolToSmiles writes a canonical SMILES string for the molecule.  Disconnected
// components are written dot-separated, ordered by their lowest canonical
// rank.
func MolToSmiles(m *Mol) string {
	if m.NumAtoms() == 0 {
		return ""
	}
	ranks := CanonicalRanks(m)

	comps := m.ConnectedComponents()
	sort.Slice(comps, func(i, j int) bool {
		return minRank(comps[i], ranks) < minRank(comps[j], ranks)
	})

	parts := make([]string, 0, len(comps))
	for _, comp := range comps {
		parts = append(parts, writeComponent(m, comp, ranks))
	}
	return strings.Join(parts, ".")
}

// CanonicalSmiles parses and re-writes a SMILES string in canonical form.
func CanonicalSmiles(smiles string) (string, error) {
	m, err := MolFromSmiles(smiles)
	if err != nil {
		return "", err
	}
	return MolToSmiles(m), nil
}

func minRank(comp []int, ranks []int) int {
	min := ranks[comp[0]]
	for _, i := range comp[1:] {
		if ranks[i] < min {
			min = ranks[i]
		}
	}
	return min
}

type ringRef struct {
	num   int
	other int // partner atom across the ring bond
}

type smilesWriter struct {
	mol     *Mol
	ranks   []int
	visited []bool
	ringAt  map[int][]ringRef // atom index → ring closures emitted at that atom
	nextNum int
	sb      strings.Builder
}

// writeComponent emits one connected component starting from its
// lowest-ranked atom.
func writeComponent(m *Mol, comp []int, ranks []int) string {
	start := comp[0]
	for _, i := range comp[1:] {
		if ranks[i] < ranks[start] {
			start = i
		}
	}
	w := &smilesWriter{
		mol:     m,
		ranks:   ranks,
		visited: make([]bool, m.NumAtoms()),
		ringAt:  map[int][]ringRef{},
		nextNum: 1,
	}
	w.classify(start, -1)
	for i := range w.visited {
		w.visited[i] = false
	}
	w.walk(start, -1)
	return w.sb.String()
}

// classify walks the spanning tree in the exact order walk will use and
// assigns a ring-closure number to every non-tree bond, registering the
// digit at both endpoints.
func (w *smilesWriter) classify(atom, parent int) {
	w.visited[atom] = true
	for _, nb := range w.orderedNeighbors(atom, parent) {
		if w.visited[nb] {
			if !w.hasRingRef(atom, nb) {
				num := w.nextNum
				w.nextNum++
				w.ringAt[atom] = append(w.ringAt[atom], ringRef{num: num, other: nb})
				w.ringAt[nb] = append(w.ringAt[nb], ringRef{num: num, other: atom})
			}
			continue
		}
		w.classify(nb, atom)
	}
}

func (w *smilesWriter) hasRingRef(atom, other int) bool {
	for _, r := range w.ringAt[atom] {
		if r.other == other {
			return true
		}
	}
	return false
}

// walk emits the SMILES text for the subtree rooted at atom.
func (w *smilesWriter) walk(atom, parent int) {
	w.visited[atom] = true
	w.sb.WriteString(w.atomToken(atom))

	// Ring closure digits at this atom, in number order.
	refs := append([]ringRef(nil), w.ringAt[atom]...)
	sort.Slice(refs, func(i, j int) bool { return refs[i].num < refs[j].num })
	for _, r := range refs {
		w.sb.WriteString(w.bondToken(atom, r.other))
		w.sb.WriteString(closureToken(r.num))
	}

	children := make([]int, 0, 4)
	for _, nb := range w.orderedNeighbors(atom, parent) {
		if !w.visited[nb] && !w.hasRingRef(atom, nb) {
			children = append(children, nb)
		}
	}
	for i, child := range children {
		if i < len(children)-1 {
			w.sb.WriteByte('(')
			w.sb.WriteString(w.bondToken(atom, child))
			w.walk(child, atom)
			w.sb.WriteByte(')')
		} else {
			w.sb.WriteString(w.bondToken(atom, child))
			w.walk(child, atom)
		}
	}
}

// orderedNeighbors returns the neighbours of atom (excluding parent) in
// ascending canonical-rank order.
func (w *smilesWriter) orderedNeighbors(atom, parent int) []int {
	var nbrs []int
	for _, nb := range w.mol.Neighbors(atom) {
		if nb != parent {
			nbrs = append(nbrs, nb)
		}
	}
	sort.Slice(nbrs, func(i, j int) bool { return w.ranks[nbrs[i]] < w.ranks[nbrs[j]] })
	return nbrs
}

// atomToken writes one atom, bracketed when required.
func (w *smilesWriter) atomToken(idx int) string {
	a := &w.mol.Atoms[idx]
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	_, organic := defaultValences[a.Symbol]
	if a.Charge == 0 && organic && !a.HExplicit {
		return sym
	}
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(sym)
	if a.HExplicit && a.HCount > 0 {
		sb.WriteByte('H')
		if a.HCount > 1 {
			fmt.Fprintf(&sb, "%d", a.HCount)
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		fmt.Fprintf(&sb, "+%d", a.Charge)
	case a.Charge < -1:
		fmt.Fprintf(&sb, "-%d", -a.Charge)
	}
	sb.WriteByte(']')
	return sb.String()
}

// bondToken writes the bond symbol between two atoms, omitting it when the
// SMILES default applies.
func (w *smilesWriter) bondToken(a, b int) string {
	bd := w.mol.BondBetween(a, b)
	if bd == nil {
		return ""
	}
	bothAromatic := w.mol.Atoms[a].Aromatic && w.mol.Atoms[b].Aromatic
	switch bd.Order {
	case BondSingle:
		if bothAromatic {
			return "-" // explicit single between aromatic systems
		}
		return ""
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		return "" // implied between aromatic atoms
	}
	return ""
}

func closureToken(num int) string {
	if num < 10 {
		return fmt.Sprintf("%d", num)
	}
	return fmt.Sprintf("%%%02d", num)
}

func bondKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
