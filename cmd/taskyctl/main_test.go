package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := &cobra.Command{Use: "taskyctl"}
	root.AddCommand(newMigrateCmd(), newStatsCmd(), newUserCmd(), newTokensCmd())

	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"stats"},
		{"user", "create"},
		{"tokens", "purge"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest)
		assert.NotNil(t, cmd.RunE, path)
	}
}

func TestUserCreateFlags(t *testing.T) {
	cmd := newUserCmd()
	create, _, err := cmd.Find([]string{"create"})
	require.NoError(t, err)

	for _, name := range []string{"name", "email", "password"} {
		assert.NotNil(t, create.Flags().Lookup(name), name)
	}
}
