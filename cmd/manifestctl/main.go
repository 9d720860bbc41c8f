// Package main implements manifestctl, the operator CLI for manifest.
// Every subcommand builds its own short-lived orchestrator from
// internal/bootstrap and calls straight into internal/pipeline; there
// is no HTTP hop to manifestd, which only exposes /healthz and
// /metrics (see cmd/manifestd).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fieldcraft-labs/manifest/internal/bootstrap"
	"github.com/fieldcraft-labs/manifest/internal/config"
	"github.com/fieldcraft-labs/manifest/internal/logging"
	"github.com/fieldcraft-labs/manifest/internal/pipeline"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "manifestctl",
	Short: "CLI for the manifest inventory search and packing system",
	Long: `manifestctl ingests item photos, searches the resulting inventory by
natural-language query, and packs a subset of it against a weight and
diversity budget.

Configuration (provider credentials, vector store URL, solver time
limit) is read from the environment; see internal/config.`,
	Version: version,
}

// newOrchestrator loads configuration and builds a fresh Orchestrator
// plus its Dependencies for a single command invocation. Callers must
// defer deps.Close().
func newOrchestrator() (*pipeline.Orchestrator, *bootstrap.Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := newCLILogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	orch, deps, err := bootstrap.NewOrchestrator(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing providers: %w", err)
	}
	return orch, deps, nil
}

// newCLILogger builds a console-formatted logger for interactive use,
// layered onto internal/logging's defaults the same way manifestd's
// own logger is, but with Format forced to "console" instead of
// inheriting the daemon's "json" default.
func newCLILogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = "console"
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
