package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/vesperhq/vesper/internal/app"
	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/log"
	"github.com/vesperhq/vesper/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [file|dir ...]",
	Short: "Run the MCP server on stdio",
	Long: `Mcp speaks the Model Context Protocol over stdin/stdout so MCP clients
can search the knowledge engine. Paths given as arguments are indexed in
the background. Stdout carries only JSON-RPC frames; logging goes to
stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(args)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// runMCP initializes and starts the MCP server on stdio transport.
func runMCP(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// log.New writes to stderr, keeping stdout clean for JSON-RPC.
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting MCP server", "version", Version)

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	if len(args) > 0 {
		go func() {
			n, indexErr := indexPaths(ctx, a.Engine, args, io.Discard)
			if indexErr != nil {
				slog.Warn("background indexing finished with errors", "indexed", n, "error", indexErr)
				return
			}
			slog.Info("background indexing complete", "files", n)
		}()
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Name:    "vesper",
		Version: Version,
		Engine:  a.Engine,
		Logger:  slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	slog.Info("MCP server ready", "name", "vesper", "version", Version, "transport", "stdio")

	if err := mcpServer.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	slog.Info("MCP server shut down gracefully")
	return nil
}
