package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/a3tai/packlist/internal/config"
	"github.com/a3tai/packlist/internal/convert"
	"github.com/a3tai/packlist/internal/mcp"
	"github.com/a3tai/packlist/internal/registry"
	"github.com/a3tai/packlist/internal/web"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// parseLevel maps a config log level to slog
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging builds the process logger. In stdio mode stdout carries the
// MCP stream, so logs go to stderr as text; the web server logs JSON to
// stdout.
func setupLogging(cfg *config.Config, stdout, stderr io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.IsStdioMode() {
		return slog.New(slog.NewTextHandler(stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(stdout, opts))
}

// openStore opens the registry backend selected by the configuration
func openStore(ctx context.Context, cfg *config.Config) (registry.Store, error) {
	return registry.Open(ctx, registry.Options{
		Backend:   cfg.Store,
		OutputDir: cfg.OutputDir,
		UploadDir: cfg.UploadDir,
		DBPath:    cfg.DBPath,
	})
}

// run wires the store and conversion service and blocks in the configured
// mode until ctx is done.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer store.Close()

	svc, err := convert.NewService(store, cfg.MaxFileSize,
		convert.WithLogger(logger),
		convert.WithKeepSource(cfg.KeepUploads))
	if err != nil {
		return err
	}

	if cfg.IsServerMode() {
		return runServerMode(ctx, cfg, svc, logger)
	}
	return runStdioMode(ctx, cfg, svc, logger)
}

// runServerMode serves the web application until ctx is done, then shuts
// down gracefully.
func runServerMode(ctx context.Context, cfg *config.Config, svc *convert.Service, logger *slog.Logger) error {
	handler := web.NewServer(svc, web.WithLogger(logger)).Router()
	srv := web.NewHTTPServer(cfg.Address(), handler)

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Address(), "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	select {
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// runStdioMode serves MCP tools over stdin/stdout. The parent process
// controls the lifecycle by closing stdin.
func runStdioMode(ctx context.Context, cfg *config.Config, svc *convert.Service, logger *slog.Logger) error {
	server, err := mcp.NewServer(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, os.Stdout, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("starting", "config", cfg.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		cancel()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "packlist server\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
