package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"extract", "process", "generate", "all", "load", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "community-ingest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	for _, stage := range []string{"extract", "process", "generate", "load", "runs"} {
		assert.Contains(t, rootCmd.Long, stage)
	}
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestExtractCommand_Flags(t *testing.T) {
	flag := extractCmd.Flags().Lookup("retry-failed")
	require.NotNil(t, flag, "extract command should have --retry-failed flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestLoadCommand_Flags(t *testing.T) {
	flag := loadCmd.Flags().Lookup("direct")
	require.NotNil(t, flag, "load command should have --direct flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestRunsCommand_Flags(t *testing.T) {
	flag := runsCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)

	for _, name := range []string{"stage", "status"} {
		assert.NotNil(t, runsCmd.Flags().Lookup(name), "runs command should have --%s flag", name)
	}

	var hasShow bool
	for _, c := range runsCmd.Commands() {
		hasShow = hasShow || c.Name() == "show"
	}
	assert.True(t, hasShow)
}
