package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"resolve", "aggregate", "part", "serve", "migrate", "store"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "partsurfer", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestExecute_PrintsErrorOnce(t *testing.T) {
	var cobraOut bytes.Buffer
	rootCmd.SetArgs([]string{"part"})
	rootCmd.SetErr(&cobraOut)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetErr(nil)
	})

	var stderr bytes.Buffer
	err := execute(&stderr)
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(stderr.String(), "Error:"))
	assert.Contains(t, stderr.String(), "accepts 1 arg(s)")
	assert.Empty(t, cobraOut.String())
}

func TestResolveCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "out", "live", "concurrency", "retry", "log-json"} {
		require.NotNil(t, resolveCmd.Flags().Lookup(name), "resolve should have --%s", name)
	}
	assert.Equal(t, "i", resolveCmd.Flags().Lookup("input").Shorthand)
	assert.Equal(t, "o", resolveCmd.Flags().Lookup("out").Shorthand)
	assert.Equal(t, "out/partsurfer", resolveCmd.Flags().Lookup("out").DefValue)
	assert.Equal(t, "3", resolveCmd.Flags().Lookup("concurrency").DefValue)
}

func TestPartCommand_Args(t *testing.T) {
	assert.Error(t, partCmd.Args(partCmd, nil))
	assert.NoError(t, partCmd.Args(partCmd, []string{"P00930-B21"}))
	require.NotNil(t, partCmd.Flags().Lookup("verify"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestStoreCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range storeCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["purge"])
	assert.True(t, names["attempts"])
}

func TestApplyFetchFlags(t *testing.T) {
	c := useConfig(t, "http://127.0.0.1:1")
	c.Fetch.Live = false
	c.Fetch.Retries = 2

	cmd := &cobra.Command{}
	cmd.Flags().Bool("live", false, "")
	cmd.Flags().Int("retry", 0, "")

	applyFetchFlags(cmd, true, 5)
	assert.False(t, cfg.Fetch.Live, "unchanged flags keep config values")
	assert.Equal(t, 2, cfg.Fetch.Retries)

	require.NoError(t, cmd.Flags().Set("live", "true"))
	require.NoError(t, cmd.Flags().Set("retry", "-1"))
	applyFetchFlags(cmd, true, -1)
	assert.True(t, cfg.Fetch.Live)
	assert.Equal(t, 2, cfg.Fetch.Retries, "negative retries fall back to the default")
}
