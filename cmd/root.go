// Package cmd wires up the vesper CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vesper [file|dir ...]",
	Short: "Vesper - semantic search over local documents",
	Long: `Vesper chunks and embeds local documents, then answers natural-language
queries against them. Vectors live in process memory, so every run starts
from the files you hand it.

Run vesper with no subcommand to index the given paths and drop into the
interactive search TUI.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Subcommands register themselves in their own files.
}
