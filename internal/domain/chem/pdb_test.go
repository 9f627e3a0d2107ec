package chem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const miniPDB = `HEADER    TEST PROTEIN
ATOM      1  N   ALA A   1      11.104   6.134  -6.504  1.00  0.00           N
ATOM      2  CA  ALA A   1      11.639   6.071  -5.147  1.00  0.00           C
ATOM      3  H   ALA A   1      10.500   5.500  -7.000  1.00  0.00           H
HETATM    4  O   HOH A 101       5.000   5.000   5.000  1.00  0.00           O
HETATM    5 CL   LIG A 201       1.234   2.345   3.456  1.00  0.00          CL
END
`

func TestReadPDBHeavyAtoms(t *testing.T) {
	m, err := ReadPDBHeavyAtoms(strings.NewReader(miniPDB))
	require.NoError(t, err)

	// Hydrogen and water records are dropped.
	require.Equal(t, 3, m.NumAtoms())
	assert.Equal(t, "N", m.Atoms[0].Symbol)
	assert.Equal(t, "C", m.Atoms[1].Symbol)
	assert.Equal(t, "Cl", m.Atoms[2].Symbol)

	require.True(t, m.HasConformer())
	assert.InDelta(t, 11.104, m.Conformer[0].X, 1e-6)
	assert.InDelta(t, 6.071, m.Conformer[1].Y, 1e-6)
	assert.InDelta(t, 3.456, m.Conformer[2].Z, 1e-6)

	// No topology is derived from PDB input.
	assert.Equal(t, 0, m.NumBonds())
}

func TestReadPDBHeavyAtoms_ElementFromAtomName(t *testing.T) {
	// Element columns blank: fall back to the atom-name field.
	pdb := "ATOM      1  CA  ALA A   1      11.639   6.071  -5.147  1.00  0.00\n"
	m, err := ReadPDBHeavyAtoms(strings.NewReader(pdb))
	require.NoError(t, err)
	require.Equal(t, 1, m.NumAtoms())
	assert.Equal(t, "C", m.Atoms[0].Symbol)
}

func TestReadPDBHeavyAtoms_Errors(t *testing.T) {
	_, err := ReadPDBHeavyAtoms(strings.NewReader("HEADER only\nEND\n"))
	assert.Error(t, err)

	_, err = ReadPDBHeavyAtoms(strings.NewReader("ATOM      1  N   ALA\n"))
	assert.Error(t, err)
}
