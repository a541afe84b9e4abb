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
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/waitwatch/internal/app"
	"github.com/rpggio/waitwatch/internal/config"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/ingest"
	"github.com/rpggio/waitwatch/internal/logging"
	"github.com/rpggio/waitwatch/internal/sqlite"
	"github.com/rpggio/waitwatch/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	fallback := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		fallback = os.Stderr
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Path:     cfg.Log.Path,
		MaxBytes: cfg.Log.MaxBytes,
		Fallback: fallback,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.WithLogger(logger).RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	a, err := app.New(db, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to wire services", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Estimate.WarmCache(ctx); err != nil {
		logger.Warn("failed to warm estimate cache", "error", err)
	}

	mcpServer := a.MCPServer()

	if cfg.Transport.Mode == "stdio" {
		loopDone := startLifecycle(ctx, logger, a, openFrameInput(logger, cfg.Tracking.Input, true))
		runStdioMode(ctx, logger, mcpServer)
		stop()
		<-loopDone
		return
	}

	var frames *ingest.ChannelSource
	src := openFrameInput(logger, cfg.Tracking.Input, false)
	if src == nil {
		frames = ingest.NewChannelSource(cfg.Tracking.QueueSize)
		src = frames
	}
	loopDone := startLifecycle(ctx, logger, a, src)

	var pusher transport.FramePusher
	if frames != nil {
		pusher = frames
	}
	runHTTPMode(ctx, logger, a.HTTPHandler(pusher, mcpServer), cfg.Server.Host, cfg.Server.Port)

	if frames != nil {
		frames.Close()
	}
	stop()
	<-loopDone
}

// openFrameInput opens the configured NDJSON frame input. It returns nil when
// no input is configured, or when stdin is requested but reserved for MCP.
func openFrameInput(logger *slog.Logger, input string, stdinReserved bool) occupancy.FrameSource {
	switch input {
	case "":
		return nil
	case "-":
		if stdinReserved {
			logger.Warn("frame input from stdin is unavailable in stdio mode")
			return nil
		}
		return ingest.NewNDJSONSource(os.Stdin)
	default:
		file, err := os.Open(input)
		if err != nil {
			logger.Error("failed to open frame input", "path", input, "error", err)
			os.Exit(1)
		}
		return ingest.NewNDJSONSource(file)
	}
}

// startLifecycle runs the lifecycle loop over src until it is exhausted or
// ctx is canceled. The returned channel closes when the loop stops.
func startLifecycle(ctx context.Context, logger *slog.Logger, a *app.App, src occupancy.FrameSource) <-chan struct{} {
	done := make(chan struct{})
	if src == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		err := a.Lifecycle.Run(ctx, src)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("lifecycle loop stopped", "error", err)
			return
		}
		logger.Info("lifecycle loop stopped")
	}()
	return done
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
	}
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(ctx, logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
