package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vesperhq/vesper/internal/app"
	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/knowledge"
	"github.com/vesperhq/vesper/internal/log"
)

var (
	searchMaxResults int
	searchThreshold  float64
	searchNoExpand   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query> <file|dir> ...",
	Short: "One-shot semantic search",
	Long: `Search indexes the given paths, runs a single query against them, and
prints the matching passages. The index lives in memory, so at least one
file or directory is required.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0], args[1:])
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 0, "maximum passages to return")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum cosine similarity, 0..1")
	searchCmd.Flags().BoolVar(&searchNoExpand, "no-expand", false, "disable query expansion")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, query string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("search needs at least one file or directory to index")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	if _, err := indexPaths(ctx, a.Engine, paths, io.Discard); err != nil {
		return err
	}

	var opts []knowledge.SearchOption
	if cmd.Flags().Changed("max-results") {
		opts = append(opts, knowledge.WithMaxResults(searchMaxResults))
	}
	if cmd.Flags().Changed("threshold") {
		opts = append(opts, knowledge.WithThreshold(searchThreshold))
	}
	if searchNoExpand {
		opts = append(opts, knowledge.WithExpansion(false))
	}

	resp, err := a.Engine.Search(ctx, query, opts...)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printSearchResults(os.Stdout, query, resp)
	return nil
}

// printSearchResults writes a plain-text rendering of a search response.
func printSearchResults(w io.Writer, query string, resp *knowledge.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "No passages matched %q.\n", query)
		return
	}

	fmt.Fprintf(w, "%d passages for %q\n", len(resp.Results), query)
	if len(resp.Variants) > 1 {
		fmt.Fprintf(w, "Searched as: %s\n", strings.Join(resp.Variants, ", "))
	}
	fmt.Fprintln(w)

	for i, r := range resp.Results {
		marker := ""
		if r.IsGapFiller {
			marker = " (adjacent context)"
		}
		fmt.Fprintf(w, "%d. %s [%s] similarity %.2f%s\n", i+1, r.DocumentName, r.Kind, r.Similarity, marker)
		for _, line := range strings.Split(strings.TrimRight(r.Content, "\n"), "\n") {
			fmt.Fprintf(w, "   %s\n", line)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d candidates in %s\n", resp.Candidates, resp.Elapsed.Round(time.Millisecond))
}
