package chem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ethanolMolBlock = `ethanol
  test

  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.1000    1.3000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
`

func TestMolFromMolBlock(t *testing.T) {
	m, err := MolFromMolBlock(ethanolMolBlock)
	require.NoError(t, err)

	assert.Equal(t, "ethanol", m.Name)
	assert.Equal(t, 3, m.NumAtoms())
	assert.Equal(t, 2, m.NumBonds())
	assert.Equal(t, "O", m.Atoms[2].Symbol)
	require.True(t, m.HasConformer())
	assert.InDelta(t, 1.5, m.Conformer[1].X, 1e-9)
	assert.InDelta(t, 1.3, m.Conformer[2].Y, 1e-9)
	assert.Equal(t, BondSingle, m.Bonds[0].Order)
}

func TestMolFromMolBlock_Charges(t *testing.T) {
	block := `charged


  1  0  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 N   0  0  0  0  0  0  0  0  0  0  0  0
M  CHG  1   1   1
M  END
`
	m, err := MolFromMolBlock(block)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Atoms[0].Charge)
}

func TestMolFromMolBlock_Errors(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"too short", "x\n"},
		{"bad counts", "a\nb\nc\nzzz\n"},
		{"truncated atoms", "a\nb\nc\n  5  0  0  0  0  0  0  0  0  0999 V2000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MolFromMolBlock(tt.block)
			assert.Error(t, err)
		})
	}
}

func TestMolToMolBlock_RoundTrip(t *testing.T) {
	orig, err := MolFromMolBlock(ethanolMolBlock)
	require.NoError(t, err)

	back, err := MolFromMolBlock(MolToMolBlock(orig))
	require.NoError(t, err)

	assert.Equal(t, orig.NumAtoms(), back.NumAtoms())
	assert.Equal(t, orig.NumBonds(), back.NumBonds())
	for i := range orig.Atoms {
		assert.Equal(t, orig.Atoms[i].Symbol, back.Atoms[i].Symbol)
		assert.InDelta(t, orig.Conformer[i].X, back.Conformer[i].X, 1e-4)
		assert.InDelta(t, orig.Conformer[i].Y, back.Conformer[i].Y, 1e-4)
		assert.InDelta(t, orig.Conformer[i].Z, back.Conformer[i].Z, 1e-4)
	}
}

func TestReadSDF_MultiRecord(t *testing.T) {
	sdf := ethanolMolBlock + ">  <score>\n0.75\n\n$$$$\n" + ethanolMolBlock + "$$$$\n"

	records, err := ReadSDF(strings.NewReader(sdf))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ethanol", records[0].Mol.Name)
	assert.Equal(t, "0.75", records[0].Fields["score"])
	assert.Empty(t, records[1].Fields)
}

func TestReadSDF_MissingTerminatorAccepted(t *testing.T) {
	records, err := ReadSDF(strings.NewReader(ethanolMolBlock))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteSDF_RoundTrip(t *testing.T) {
	m, err := MolFromMolBlock(ethanolMolBlock)
	require.NoError(t, err)

	var sb strings.Builder
	err = WriteSDF(&sb, []SDFRecord{{Mol: m, Fields: map[string]string{"name": "m1"}}})
	require.NoError(t, err)

	records, err := ReadSDF(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Mol.NumAtoms())
	assert.Equal(t, "m1", records[0].Fields["name"])
}
