package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeGraphQueryFailed, "expansion query failed")
	require.NotNil(t, err)
	assert.Equal(t, CodeGraphQueryFailed, err.Code)
	assert.Equal(t, "[GRAPH_002] expansion query failed", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWithDetail(t *testing.T) {
	err := InvalidParam("synthon must carry exactly one [Xe]").
		WithDetail("synthon=O=C(O)[Xe].[Xe]")
	assert.Contains(t, err.Error(), "synthon=O=C(O)[Xe].[Xe]")

	// WithDetail returns a copy; the original is untouched.
	base := InvalidParam("base")
	_ = base.WithDetail("extra")
	assert.Empty(t, base.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("whatever"))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeGraphUnavailable, "neo4j unreachable")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeGraphUnavailable, err.Code)

	assert.Nil(t, Wrap(nil, CodeInternal, "no-op"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(CodeInvalidSynthon, "bad synthon")
	outer := Wrap(inner, CodeUnknown, "while extracting")
	assert.Equal(t, CodeInvalidSynthon, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(CodeFragmentNotFound, "x0034_0B missing")
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.True(t, IsCode(wrapped, CodeFragmentNotFound))
	assert.False(t, IsCode(wrapped, CodeGraphUnavailable))
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("gone")))
	assert.True(t, IsNotFound(New(CodeFragmentNotFound, "gone")))
	assert.False(t, IsNotFound(Internal("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, CodeEmbeddingFailed, GetCode(New(CodeEmbeddingFailed, "no embedding")))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "GRAPH", ModuleForCode(CodeGraphQueryFailed))
	assert.Equal(t, "CHEM", ModuleForCode(CodeInvalidSMILES))
	assert.Equal(t, "MERGE", ModuleForCode(CodeInvalidSynthon))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("_")))
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "fragment network unavailable", DefaultMessageForCode(CodeGraphUnavailable))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE_999")))
}
