package chem

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// MDL mol / SD file handling (V2000)
// ─────────────────────────────────────────────────────────────────────────────

// MolFromMolBlock parses a single MDL V2000 mol block.  The three header
// lines are consumed (line one becomes the molecule name); charges from the
// atom block and M  CHG property lines are honoured; everything else in the
// properties block is ignored.
func MolFromMolBlock(block string) (*Mol, error) {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, errors.New(errors.CodeInvalidMolFile, "mol block shorter than header")
	}

	m := NewMol()
	m.Name = strings.TrimSpace(lines[0])

	counts := lines[3]
	if len(counts) < 6 {
		return nil, errors.New(errors.CodeInvalidMolFile, "counts line too short")
	}
	nAtoms, err1 := strconv.Atoi(strings.TrimSpace(counts[0:3]))
	nBonds, err2 := strconv.Atoi(strings.TrimSpace(counts[3:6]))
	if err1 != nil || err2 != nil {
		return nil, errors.New(errors.CodeInvalidMolFile, "malformed counts line").
			WithDetail(counts)
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, errors.New(errors.CodeInvalidMolFile,
			fmt.Sprintf("mol block truncated: need %d atom and %d bond lines", nAtoms, nBonds))
	}

	for i := 0; i < nAtoms; i++ {
		line := lines[4+i]
		if len(line) < 34 {
			return nil, errors.New(errors.CodeInvalidMolFile,
				fmt.Sprintf("atom line %d too short", i+1))
		}
		x, ex := strconv.ParseFloat(strings.TrimSpace(line[0:10]), 64)
		y, ey := strconv.ParseFloat(strings.TrimSpace(line[10:20]), 64)
		z, ez := strconv.ParseFloat(strings.TrimSpace(line[20:30]), 64)
		if ex != nil || ey != nil || ez != nil {
			return nil, errors.New(errors.CodeInvalidMolFile,
				fmt.Sprintf("atom line %d has malformed coordinates", i+1))
		}
		sym := strings.TrimSpace(line[31:34])
		m.AddAtom(Atom{Symbol: sym})
		m.Conformer = append(m.Conformer, Point3{X: x, Y: y, Z: z})
	}

	for i := 0; i < nBonds; i++ {
		line := lines[4+nAtoms+i]
		if len(line) < 9 {
			return nil, errors.New(errors.CodeInvalidMolFile,
				fmt.Sprintf("bond line %d too short", i+1))
		}
		from, e1 := strconv.Atoi(strings.TrimSpace(line[0:3]))
		to, e2 := strconv.Atoi(strings.TrimSpace(line[3:6]))
		ord, e3 := strconv.Atoi(strings.TrimSpace(line[6:9]))
		if e1 != nil || e2 != nil || e3 != nil {
			return nil, errors.New(errors.CodeInvalidMolFile,
				fmt.Sprintf("bond line %d malformed", i+1))
		}
		order := BondOrder(ord)
		if order == BondAromatic {
			m.Atoms[from-1].Aromatic = true
			m.Atoms[to-1].Aromatic = true
		}
		if err := m.AddBond(from-1, to-1, order); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidMolFile,
				fmt.Sprintf("bond line %d references missing atoms", i+1))
		}
	}

	// Properties block: only M  CHG is interpreted.
	for _, line := range lines[4+nAtoms+nBonds:] {
		if strings.HasPrefix(line, "M  CHG") {
			fields := strings.Fields(line)
			if len(fields) < 3 {
				continue
			}
			n, _ := strconv.Atoi(fields[2])
			for j := 0; j < n && 4+2*j < len(fields); j++ {
				idx, _ := strconv.Atoi(fields[3+2*j])
				chg, _ := strconv.Atoi(fields[4+2*j])
				if idx >= 1 && idx <= len(m.Atoms) {
					m.Atoms[idx-1].Charge = chg
				}
			}
		}
		if strings.HasPrefix(line, "M  END") {
			break
		}
	}

	return m, nil
}

// MolToMolBlock renders the molecule as an MDL V2000 mol block.  Molecules
// without a conformer are written with zero coordinates.
func MolToMolBlock(m *Mol) string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteString("\n  fnmerge\n\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", m.NumAtoms(), m.NumBonds())

	for i := range m.Atoms {
		var p Point3
		if m.HasConformer() {
			p = m.Conformer[i]
		}
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			p.X, p.Y, p.Z, m.Atoms[i].Symbol)
	}
	for _, b := range m.Bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d  0\n", b.From+1, b.To+1, int(b.Order))
	}

	var charged []int
	for i := range m.Atoms {
		if m.Atoms[i].Charge != 0 {
			charged = append(charged, i)
		}
	}
	// M CHG lines carry at most eight entries each.
	for len(charged) > 0 {
		n := len(charged)
		if n > 8 {
			n = 8
		}
		fmt.Fprintf(&sb, "M  CHG%3d", n)
		for _, idx := range charged[:n] {
			fmt.Fprintf(&sb, " %3d %3d", idx+1, m.Atoms[idx].Charge)
		}
		sb.WriteByte('\n')
		charged = charged[n:]
	}

	sb.WriteString("M  END\n")
	return sb.String()
}

// SDFRecord is one molecule from an SD file together with its data fields.
type SDFRecord struct {
	Mol    *Mol
	Fields map[string]string
}

// ReadSDF reads every record from an SD file stream.  Records that fail to
// parse yield an error mentioning their ordinal position.
func ReadSDF(r io.Reader) ([]SDFRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []SDFRecord
	var cur []string
	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		rec, err := parseSDFRecord(cur)
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalidMolFile,
				fmt.Sprintf("SD record %d", len(records)+1))
		}
		records = append(records, rec)
		cur = nil
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "$$$$" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		cur = append(cur, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidMolFile, "reading SD stream")
	}
	// A final record without a trailing $$$$ is accepted.
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseSDFRecord(lines []string) (SDFRecord, error) {
	// The mol block ends at M  END; data fields follow.
	end := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "M  END") {
			end = i
			break
		}
	}
	if end < 0 {
		return SDFRecord{}, errors.New(errors.CodeInvalidMolFile, "record missing M  END")
	}
	m, err := MolFromMolBlock(strings.Join(lines[:end+1], "\n"))
	if err != nil {
		return SDFRecord{}, err
	}

	rec := SDFRecord{Mol: m, Fields: map[string]string{}}
	var name string
	var value []string
	store := func() {
		if name != "" {
			rec.Fields[name] = strings.Join(value, "\n")
		}
		name = ""
		value = nil
	}
	for _, line := range lines[end+1:] {
		if strings.HasPrefix(line, ">") {
			store()
			if open := strings.Index(line, "<"); open >= 0 {
				if rel := strings.Index(line[open:], ">"); rel > 0 {
					name = line[open+1 : open+rel]
				}
			}
			continue
		}
		if name != "" && strings.TrimSpace(line) != "" {
			value = append(value, line)
		}
	}
	store()
	return rec, nil
}

// WriteSDF writes records to an SD stream, each terminated by $$$$.
// Field names are written in lexicographic order so output is reproducible.
func WriteSDF(w io.Writer, records []SDFRecord) error {
	for _, rec := range records {
		if _, err := io.WriteString(w, MolToMolBlock(rec.Mol)); err != nil {
			return errors.Wrap(err, errors.CodeInvalidMolFile, "writing SD record")
		}
		for _, name := range sortedKeys(rec.Fields) {
			if _, err := fmt.Fprintf(w, ">  <%s>\n%s\n\n", name, rec.Fields[name]); err != nil {
				return errors.Wrap(err, errors.CodeInvalidMolFile, "writing SD field")
			}
		}
		if _, err := io.WriteString(w, "$$$$\n"); err != nil {
			return errors.Wrap(err, errors.CodeInvalidMolFile, "writing SD terminator")
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
