package chem

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// PDB coordinate extraction
// ─────────────────────────────────────────────────────────────────────────────

// ReadPDBHeavyAtoms extracts the heavy-atom coordinates from a PDB stream.
// Only ATOM and HETATM records contribute; hydrogens and water (HOH) residues
// are skipped.  The clash filter needs positions and elements, not topology,
// so the returned molecule carries no bonds.
func ReadPDBHeavyAtoms(r io.Reader) (*Mol, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	m := NewMol()
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		if len(line) < 54 {
			return nil, errors.New(errors.CodeInvalidPDBFile,
				"coordinate record too short").WithDetail(strconv.Itoa(lineNo))
		}

		// Columns per the PDB v3.3 fixed-width layout.
		resName := strings.TrimSpace(safeSlice(line, 17, 20))
		if resName == "HOH" {
			continue
		}

		element := strings.TrimSpace(safeSlice(line, 76, 78))
		if element == "" {
			// Fall back to the atom-name field when the element column is blank.
			element = inferElement(strings.TrimSpace(safeSlice(line, 12, 16)))
		}
		element = normalizeElement(element)
		if element == "H" || element == "" {
			continue
		}

		x, ex := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
		y, ey := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
		z, ez := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
		if ex != nil || ey != nil || ez != nil {
			return nil, errors.New(errors.CodeInvalidPDBFile,
				"malformed coordinates").WithDetail(strconv.Itoa(lineNo))
		}

		m.AddAtom(Atom{Symbol: element})
		m.Conformer = append(m.Conformer, Point3{X: x, Y: y, Z: z})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidPDBFile, "reading PDB stream")
	}
	if m.NumAtoms() == 0 {
		return nil, errors.New(errors.CodeInvalidPDBFile, "no heavy atoms found")
	}
	return m, nil
}

func safeSlice(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

// inferElement derives the element from a PDB atom name such as "CA", "OG1",
// or "CL1".  Two-letter elements are recognised first.
func inferElement(name string) string {
	name = strings.TrimLeft(name, "0123456789")
	if name == "" {
		return ""
	}
	upper := strings.ToUpper(name)
	for _, two := range []string{"CL", "BR", "SI"} {
		if strings.HasPrefix(upper, two) {
			return two
		}
	}
	return upper[:1]
}

// normalizeElement maps an upper-cased element token ("CL") to the standard
// mixed-case symbol ("Cl").
func normalizeElement(e string) string {
	if len(e) == 0 {
		return ""
	}
	e = strings.ToUpper(e)
	if len(e) == 1 {
		return e
	}
	return e[:1] + strings.ToLower(e[1:])
}
