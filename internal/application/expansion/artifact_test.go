package expansion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

type fakeStore struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStore) Put(_ context.Context, name string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[name] = data
	return nil
}

func TestWriteExpansion(t *testing.T) {
	store := &fakeStore{}
	w := NewArtifactWriter(store, logging.NewNopLogger())

	result := &merge.ExpansionResult{
		Target:    "Mpro",
		FragmentA: "x0107_0A",
		FragmentB: "x0434_0B",
		Candidates: []merge.Candidate{
			{Name: "x0107_0A_x0434_0B_0", SMILES: "CCO"},
		},
	}
	require.NoError(t, w.WriteExpansion(context.Background(), result))

	data, ok := store.objects["x0107_0A_x0434_0B.json"]
	require.True(t, ok, "artifact is named after the pair")

	var got merge.ExpansionResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "Mpro", got.Target)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "CCO", got.Candidates[0].SMILES)
}

func TestWriteExpansion_StoreErrorWrapped(t *testing.T) {
	store := &fakeStore{err: errors.New(errors.CodeStorageError, "bucket gone")}
	w := NewArtifactWriter(store, logging.NewNopLogger())

	err := w.WriteExpansion(context.Background(), &merge.ExpansionResult{FragmentA: "a", FragmentB: "b"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeArtifactWrite, errors.GetCode(err))
}

func TestWriteAll_SkipsFailedPairs(t *testing.T) {
	store := &fakeStore{}
	w := NewArtifactWriter(store, logging.NewNopLogger())

	results := []PairResult{
		{Index: 0, Result: &merge.ExpansionResult{FragmentA: "fa", FragmentB: "fb"}},
		{Index: 1, Err: errors.New(errors.CodeFragmentNotFound, "fb absent")},
	}
	require.NoError(t, w.WriteAll(context.Background(), results))
	assert.Len(t, store.objects, 1)
}
