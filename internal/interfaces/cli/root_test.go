package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

func writeConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "neo4j:\n  uri: neo4j://localhost:7687\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["expand"])
	assert.True(t, names["filter"])

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
	assert.NotNil(t, root.PersistentFlags().Lookup("verbose"))
}

func TestGetCLIContext_NotInitialized(t *testing.T) {
	cmd := &cobra.Command{}

	_, err := GetCLIContext(cmd)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInternal))

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
}

func TestPersistentPreRun_InstallsContext(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	opts := &RootOptions{ConfigPath: writeConfigFile(t), Verbose: true}
	require.NoError(t, persistentPreRun(cmd, opts))

	cliCtx, err := GetCLIContext(cmd)
	require.NoError(t, err)
	require.NotNil(t, cliCtx.Config)
	require.NotNil(t, cliCtx.Logger)
	assert.Equal(t, "debug", cliCtx.Config.Log.Level)
	assert.Equal(t, []string{"stderr"}, cliCtx.Config.Log.OutputPaths)
	assert.Equal(t, "neo4j://localhost:7687", cliCtx.Config.Neo4j.URI)
}

func TestPersistentPreRun_MissingConfigFile(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	opts := &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")}
	err := persistentPreRun(cmd, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestExpandCmd_RejectsSingleFragment(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{
		"--config", writeConfigFile(t),
		"expand", "--target", "Mpro", "--fragments", "x0107_0A",
	})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two fragments")
}

func TestExpandCmd_RejectsMismatchedSmiles(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{
		"--config", writeConfigFile(t),
		"expand", "--target", "Mpro",
		"--fragments", "x0107_0A,x0434_0B",
		"--smiles", "CCO",
	})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parallel")
}

func TestFilterCmd_RejectsBadPair(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{
		"--config", writeConfigFile(t),
		"filter", "--target", "Mpro", "--pair", "x0107_0A",
	})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly two fragment names")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
	assert.Equal(t, []string{"a"}, splitList("a,,"))
	assert.Nil(t, splitList(""))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, printJSON(cmd, map[string]int{"candidates": 3}))
	assert.Contains(t, buf.String(), "\"candidates\": 3")
}
