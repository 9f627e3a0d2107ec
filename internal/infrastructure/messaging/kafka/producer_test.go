package kafka

import (
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func passingResult(t *testing.T) *merge.FilterResult {
	t.Helper()
	mol, err := chem.MolFromSmiles("CCO")
	require.NoError(t, err)
	mol.Conformer = []chem.Point3{{X: 0, Y: 0, Z: 0}, {X: 1.5, Y: 0, Z: 0}, {X: 2, Y: 1.4, Z: 0}}
	return &merge.FilterResult{
		Candidate: merge.Candidate{
			Name: "x0107_0A_x0434_0B_0", SMILES: "CCO",
			FragmentA: "x0107_0A", FragmentB: "x0434_0B", Synthon: "[Xe]O",
		},
		Status: merge.StatusPass,
		Pose:   mol,
	}
}

func TestPublishPass(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, "fnm.placement.candidates", logging.NewNopLogger())

	require.NoError(t, p.PublishPass(context.Background(), passingResult(t)))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "x0107_0A_x0434_0B_0", string(msg.Key))

	var payload PlacementMessage
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "x0107_0A_x0434_0B_0", payload.Candidate)
	assert.Equal(t, "CCO", payload.SMILES)
	assert.Equal(t, "[Xe]O", payload.Synthon)
	assert.Contains(t, payload.PoseMolfile, "M  END")
	assert.False(t, payload.FilteredAt.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestPublishPass_RejectsFailures(t *testing.T) {
	p := newProducerWithWriter(&fakeWriter{}, "t", logging.NewNopLogger())

	err := p.PublishPass(context.Background(), &merge.FilterResult{
		Candidate: merge.Candidate{Name: "c"},
		Status:    merge.StatusFail,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(err))
}

func TestPublishPass_WriteErrorWrapped(t *testing.T) {
	w := &fakeWriter{err: errors.New(errors.CodeMessagingError, "broker unreachable")}
	p := newProducerWithWriter(w, "t", logging.NewNopLogger())

	err := p.PublishPass(context.Background(), passingResult(t))
	require.Error(t, err)
	assert.Equal(t, errors.CodeMessagingError, errors.GetCode(err))
}

func TestClose_Idempotent(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, "t", logging.NewNopLogger())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.PublishPass(context.Background(), passingResult(t))
	require.Error(t, err)
	assert.Equal(t, errors.CodeMessagingError, errors.GetCode(err))
}
