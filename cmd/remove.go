package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var removeServer string

var removeCmd = &cobra.Command{
	Use:   "remove <document-id>",
	Short: "Drop a document from a running server",
	Long: `Remove unregisters a document on a running vesper serve process and
drops its index. Use status to find document IDs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(args[0])
	},
}

func init() {
	removeCmd.Flags().StringVar(&removeServer, "server", defaultServerURL, "base URL of a running vesper serve")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	if err := newAPIClient(removeServer).remove(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", id)
	return nil
}
