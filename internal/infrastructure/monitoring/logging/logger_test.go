package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "smiles", Value: "c1ccccc1"}, String("smiles", "c1ccccc1"))
	assert.Equal(t, Field{Key: "hops", Value: 2}, Int("hops", 2))
	assert.Equal(t, Field{Key: "ratio", Value: 3.5}, Float64("ratio", 3.5))
	assert.Equal(t, Field{Key: "pass", Value: true}, Bool("pass", true))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestZapLogger_EmitsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core)

	logger.Info("expansion complete",
		String("fragment", "x0034_0B"),
		Int("synthons", 13),
		Duration("elapsed", 2*time.Second),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "expansion complete", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "x0034_0B", fields["fragment"])
	assert.EqualValues(t, 13, fields["synthons"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core).Named("filter").With(String("pair", "x0034_0B_x0176_0B"))

	logger.Warn("stage rejected candidate")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "filter", entries[0].LoggerName)
	assert.Equal(t, "x0034_0B_x0176_0B", entries[0].ContextMap()["pair"])
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNopLoggerAndDefault(t *testing.T) {
	nop := NewNopLogger()
	nop.Info("discarded") // must not panic
	assert.NotNil(t, Default())

	SetDefault(nop)
	assert.Equal(t, nop, Default())
	SetDefault(nil) // ignored
	assert.Equal(t, nop, Default())
}
