package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vesperhq/vesper/internal/api"
	"github.com/vesperhq/vesper/internal/app"
	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/log"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // search responses can wait on a slow embedding backend
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var (
	serveAddr string
	serveDev  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [file|dir ...]",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the knowledge engine over HTTP. Paths given as arguments
are indexed in the background while the server accepts requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(args)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port), defaults to server.host:server.port from config")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "development mode: no HSTS header, for plain-HTTP serving")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes and starts the HTTP API server.
func runServe(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	addr, err := resolveServeAddr(serveAddr, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting HTTP API server", "version", Version)

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if len(args) > 0 {
		go func() {
			n, indexErr := indexPaths(ctx, a.Engine, args, io.Discard)
			if indexErr != nil {
				logger.Warn("background indexing finished with errors", "indexed", n, "error", indexErr)
				return
			}
			logger.Info("background indexing complete", "files", n)
		}()
	}

	apiServer, err := api.NewServer(ctx, api.ServerConfig{
		Logger:      logger,
		Engine:      a.Engine,
		CORSOrigins: cfg.Server.CORSOrigins,
		IsDev:       serveDev,
		TrustProxy:  cfg.Server.TrustProxy,
		RateBurst:   cfg.Server.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
