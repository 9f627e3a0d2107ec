package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMol(t *testing.T, smiles string) *Mol {
	t.Helper()
	m, err := MolFromSmiles(smiles)
	require.NoError(t, err)
	return m
}

func TestSubstructMatch_Basic(t *testing.T) {
	target := mustMol(t, "CCO")
	query := mustMol(t, "CO")

	mapping := SubstructMatch(target, query)
	require.NotNil(t, mapping)
	assert.Equal(t, []int{1, 2}, mapping)
}

func TestSubstructMatch_Deterministic(t *testing.T) {
	target := mustMol(t, "CCCCO")
	query := mustMol(t, "CC")

	first := SubstructMatch(target, query)
	second := SubstructMatch(target, query)
	assert.Equal(t, first, second)
	// Lowest-index match wins.
	assert.Equal(t, []int{0, 1}, first)
}

func TestSubstructMatch_NoMatch(t *testing.T) {
	target := mustMol(t, "CCO")
	assert.Nil(t, SubstructMatch(target, mustMol(t, "N")))
	// Aromaticity must agree: aliphatic C does not match aromatic c.
	assert.False(t, HasSubstructMatch(mustMol(t, "c1ccccc1"), mustMol(t, "CCC")))
}

func TestSubstructMatch_QueryLargerThanTarget(t *testing.T) {
	assert.Nil(t, SubstructMatch(mustMol(t, "CC"), mustMol(t, "CCC")))
}

func TestSubstructMatch_AromaticInRing(t *testing.T) {
	toluene := mustMol(t, "Cc1ccccc1")
	benzene := mustMol(t, "c1ccccc1")
	assert.True(t, HasSubstructMatch(toluene, benzene))
}

func TestSubstructMatch_AttachmentPoint(t *testing.T) {
	target := mustMol(t, "[Xe]CCO")
	query := mustMol(t, "[Xe]C")
	mapping := SubstructMatch(target, query)
	require.NotNil(t, mapping)
	assert.Equal(t, "Xe", target.Atoms[mapping[0]].Symbol)
}

func TestSubstructMatch_WildcardAtom(t *testing.T) {
	target := mustMol(t, "CCO")
	query := mustMol(t, "*O")
	mapping := SubstructMatch(target, query)
	require.NotNil(t, mapping)
	assert.Equal(t, "O", target.Atoms[mapping[1]].Symbol)
}

func TestFindMCS_Identical(t *testing.T) {
	a := mustMol(t, "CCO")
	pairs := FindMCS(a, mustMol(t, "CCO"))
	assert.Len(t, pairs, 3)
}

func TestFindMCS_CommonChain(t *testing.T) {
	pairs := FindMCS(mustMol(t, "CCO"), mustMol(t, "CCN"))
	assert.Len(t, pairs, 2)
	// All mapped pairs agree on element.
	a, b := mustMol(t, "CCO"), mustMol(t, "CCN")
	for _, p := range pairs {
		assert.Equal(t, a.Atoms[p.A].Symbol, b.Atoms[p.B].Symbol)
	}
}

func TestFindMCS_Disjoint(t *testing.T) {
	pairs := FindMCS(mustMol(t, "CC"), mustMol(t, "O"))
	assert.Empty(t, pairs)
}

func TestMCSRatio(t *testing.T) {
	assert.InDelta(t, 1.0, MCSRatio(mustMol(t, "CCO"), mustMol(t, "CC")), 1e-12)
	assert.InDelta(t, 1.0, MCSRatio(mustMol(t, "CCO"), mustMol(t, "CCO")), 1e-12)
	assert.InDelta(t, 0.0, MCSRatio(mustMol(t, "CC"), mustMol(t, "O")), 1e-12)
}
