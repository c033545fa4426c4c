package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vesperhq/vesper/internal/app"
	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/log"
)

var indexCmd = &cobra.Command{
	Use:   "index <file|dir> ...",
	Short: "Register and index local files",
	Long: `Index chunks and embeds the given files so later searches in the same
process can find them. Directories are walked recursively for text files
(.md, .txt, .rst, .adoc). Progress is printed per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(args []string) error {
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

	n, err := indexPaths(ctx, a.Engine, args, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\nIndexed %d files.\n", n)
	return nil
}
