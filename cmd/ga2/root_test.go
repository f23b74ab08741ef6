package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := getRootCmd()
	require.NotNil(t, cmd)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"create", "migrate", "import", "alerts", "sync",
	} {
		assert.True(t, names[want], "%s subcommand should exist", want)
	}
}

func TestImportRequiresArchiveArg(t *testing.T) {
	cmd := getImportCmd()
	err := cmd.Args(cmd, []string{})
	assert.Error(t, err)
	err = cmd.Args(cmd, []string{"dwca.zip"})
	assert.NoError(t, err)
}

func TestSyncHasNotifyFlag(t *testing.T) {
	cmd := getSyncCmd()
	flag := cmd.Flags().Lookup("notify")
	require.NotNil(t, flag)
	assert.Equal(t, "bool", flag.Value.Type())
}
