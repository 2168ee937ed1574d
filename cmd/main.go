package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/doccheck/internal/adapters/extract"
	"github.com/okian/doccheck/internal/adapters/repository"
	app "github.com/okian/doccheck/internal/app"
	"github.com/okian/doccheck/internal/config"
	"github.com/okian/doccheck/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "doccheck",
	Short: "Cross-document identity verification",
	Long: `doccheck extracts identity fields from every document of a person,
normalizes them and checks that the documents agree with each other.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML configuration file (default $"+config.EnvConfigPath+")")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional YAML file and DOCCHECK_ env vars.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// setupLogging initializes the global logger from cfg. An invalid level falls
// back to info with a warning.
func setupLogging(ctx context.Context, cfg *config.Config, w io.Writer) (logger.Logger, error) {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(w)); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	l := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		l.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return l, nil
}

// openStore opens the configured record store.
func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.Store == config.StoreSQLite {
		return repository.NewSQLiteStore(cfg.SQLitePath)
	}
	return repository.NewMemoryStore(), nil
}

// newService wires the extractor, orchestrator and store described by cfg.
func newService(cfg *config.Config, l logger.Logger) (*app.Service, error) {
	ex, err := extract.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build extractor: %w", err)
	}
	orch, err := app.NewOrchestratorFromConfig(cfg, ex, app.WithOrchestratorLogger(l.Named("orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	return app.New(
		app.WithLogger(l.Named("service")),
		app.WithOrchestrator(orch),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDataDir(cfg.DataDir),
	), nil
}
