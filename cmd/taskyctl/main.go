package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "taskyctl",
		Short:         "Operate a Tasky deployment",
		Long:          "Run migrations, inspect statistics and manage accounts of a Tasky database. Configuration is read from the environment and .env like the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newStatsCmd(),
		newUserCmd(),
		newTokensCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}
