// Manifestd is the ambient process beside manifestctl: it builds the
// provider clients (vision extractor, embedder, vector store,
// synthesizer, solver) once at startup so a bad configuration fails
// fast, and exposes only /healthz and /metrics over HTTP. manifestctl
// builds its own clients and does not call this process.
// Every business operation (ingest, search, pack) is driven by
// manifestctl calling into internal/pipeline directly; see spec §1 for
// why no business HTTP surface exists here.
//
// Configuration is loaded from environment variables. See
// internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	manifestd
//
//	# Configure via environment
//	SERVER_PORT=9090 VECTORSTORE_URL=http://localhost:6333 manifestd
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fieldcraft-labs/manifest/internal/bootstrap"
	"github.com/fieldcraft-labs/manifest/internal/config"
	"github.com/fieldcraft-labs/manifest/internal/logging"
	"github.com/fieldcraft-labs/manifest/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  manifestd           Start the manifestd daemon\n")
			fmt.Fprintf(os.Stderr, "  manifestd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("manifestd error: %v", err)
	}

	log.Println("manifestd shutdown complete")
}

func printVersion() {
	fmt.Printf("manifestd by Fieldcraft Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run loads configuration, wires every long-lived dependency, and
// serves /healthz and /metrics until ctx is cancelled. Returns
// http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting manifestd",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// The orchestrator itself is built here only to fail fast on
	// misconfigured providers at startup; this binary's own HTTP
	// surface stops at /healthz and /metrics; manifestctl constructs
	// its own orchestrator in-process against the same env config and
	// never calls back into this daemon over the network (spec §1).
	orch, deps, err := bootstrap.NewOrchestrator(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close()
	_ = orch

	logger.Info("dependencies initialized",
		zap.String("extraction_provider", cfg.Extraction.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("synthesis_provider", cfg.Synthesis.Provider))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("server configured",
		zap.String("healthz_endpoint", fmt.Sprintf("http://localhost%s/healthz", addr)),
		zap.String("metrics_endpoint", "/metrics"))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- e.Start(addr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// newLogger builds the process zap.Logger from the top-level config's
// minimal Level/Format pair, layered onto internal/logging's fuller
// production defaults for everything the env config doesn't carry
// (caller info, stacktrace threshold, redaction rules).
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	if cfg.Logging.Level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", cfg.Logging.Level, err)
		}
		logCfg.Level = lvl
	}

	l, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}
	return l.Underlying(), nil
}

// newTelemetry bridges the top-level config's Enabled/ServiceName/
// OTLPEndpoint/OTLPInsecure subset onto internal/telemetry's fuller
// Config, which carries its own sampling/metrics/shutdown defaults.
func newTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.ServiceName != "" {
		telCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		telCfg.Endpoint = cfg.Telemetry.OTLPEndpoint
	}
	telCfg.Insecure = cfg.Telemetry.OTLPInsecure

	return telemetry.New(ctx, telCfg)
}
