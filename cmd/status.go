package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vesperhq/vesper/internal/knowledge"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show document state on a running server",
	Long: `Status queries a running vesper serve process. Without arguments it
prints engine totals and a table of registered documents; with a document
ID it prints that document's indexing state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(args)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", defaultServerURL, "base URL of a running vesper serve")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	client := newAPIClient(statusServer)

	if len(args) == 1 {
		st, err := client.documentStatus(ctx, args[0])
		if err != nil {
			return err
		}
		printDocumentStatus(os.Stdout, st)
		return nil
	}

	stats, err := client.stats(ctx)
	if err != nil {
		return err
	}
	list, err := client.documents(ctx)
	if err != nil {
		return err
	}
	printStatus(os.Stdout, stats, list)
	return nil
}

func printStatus(w io.Writer, stats knowledge.Stats, list documentList) {
	fmt.Fprintf(w, "Documents: %d (%d indexed)  Vectors: %d  Active jobs: %d\n",
		stats.Documents, stats.IndexedDocuments, stats.Vectors, stats.ActiveJobs)
	if len(list.Items) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tSTATE\tVECTORS")
	for _, d := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", d.ID, d.Name, d.Kind, d.Status.State, d.Status.VectorCount)
	}
	tw.Flush()
}

func printDocumentStatus(w io.Writer, st knowledge.Status) {
	fmt.Fprintf(w, "Document: %s\n", st.DocumentID)
	fmt.Fprintf(w, "State:    %s\n", st.State)
	if st.State == knowledge.StateIndexed {
		fmt.Fprintf(w, "Vectors:  %d\n", st.VectorCount)
		fmt.Fprintf(w, "Indexed:  %s (generation %d)\n", st.IndexedAt.Format("2006-01-02 15:04:05"), st.Generation)
	}
}
