package structures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

const apoPDB = `HEADER    APO STRUCTURE
ATOM      1  N   ALA A   1      11.104   6.134  -6.504  1.00  0.00           N
ATOM      2  CA  ALA A   1      11.639   6.071  -5.147  1.00  0.00           C
END
`

// writeFixture lays out one fragment directory in the Fragalysis convention.
func writeFixture(t *testing.T, dir, target, name string, withApo bool) {
	t.Helper()

	mol, err := chem.MolFromSmiles("CCO")
	require.NoError(t, err)
	mol.Conformer = []chem.Point3{{X: 0, Y: 0, Z: 0}, {X: 1.52, Y: 0, Z: 0}, {X: 2.03, Y: 1.43, Z: 0}}

	full := target + "-" + name
	fragDir := filepath.Join(dir, target, "aligned", full)
	require.NoError(t, os.MkdirAll(fragDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(fragDir, full+".mol"), []byte(chem.MolToMolBlock(mol)), 0o644))
	if withApo {
		require.NoError(t, os.WriteFile(
			filepath.Join(fragDir, full+"_apo.pdb"), []byte(apoPDB), 0o644))
	}
}

func TestLoadFragment(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "Mpro", "x0107_0A", true)
	l := NewLoader(dir, logging.NewNopLogger())

	frag, err := l.LoadFragment("Mpro", "x0107_0A")
	require.NoError(t, err)

	assert.Equal(t, "Mpro-x0107_0A", frag.FullName())
	assert.Equal(t, "CCO", frag.SMILES)
	require.True(t, frag.HasPose())
	assert.InDelta(t, 1.52, frag.Mol.Conformer[1].X, 1e-3)
}

func TestLoadFragment_Missing(t *testing.T) {
	l := NewLoader(t.TempDir(), logging.NewNopLogger())

	_, err := l.LoadFragment("Mpro", "x9999_0A")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestLoadReceptor(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "Mpro", "x0107_0A", true)
	l := NewLoader(dir, logging.NewNopLogger())

	receptor, err := l.LoadReceptor("Mpro", "x0107_0A")
	require.NoError(t, err)
	assert.Equal(t, "Mpro-x0107_0A_apo", receptor.Name)
	assert.Equal(t, 2, receptor.NumAtoms())
	assert.True(t, receptor.HasConformer())
}

func TestLoadPair(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "Mpro", "x0107_0A", true)
	writeFixture(t, dir, "Mpro", "x0434_0B", false)
	l := NewLoader(dir, logging.NewNopLogger())

	fragA, fragB, receptor, err := l.LoadPair("Mpro", "x0107_0A", "x0434_0B")
	require.NoError(t, err)
	assert.Equal(t, "x0107_0A", fragA.Name)
	assert.Equal(t, "x0434_0B", fragB.Name)
	assert.NotNil(t, receptor, "receptor aligned to the first fragment")
}

func TestLoadPair_MissingReceptorIsTolerated(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "Mpro", "x0107_0A", false)
	writeFixture(t, dir, "Mpro", "x0434_0B", false)
	l := NewLoader(dir, logging.NewNopLogger())

	_, _, receptor, err := l.LoadPair("Mpro", "x0107_0A", "x0434_0B")
	require.NoError(t, err)
	assert.Nil(t, receptor)
}
