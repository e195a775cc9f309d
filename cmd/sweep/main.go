// One-shot sweep runner for cron-less environments and manual re-runs.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oakfieldhq/backoffice/internal/application/categorize"
	"github.com/oakfieldhq/backoffice/internal/application/reconcile"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/config"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/logging"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
	"github.com/oakfieldhq/backoffice/internal/jobs"
)

func main() {
	var (
		configFile = flag.String("config", "config.yaml", "Configuration file path")
		timeout    = flag.Duration("timeout", 10*time.Minute, "Maximum sweep duration")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configFile)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "sweep")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	sweeper := jobs.NewSweeper(store,
		reconcile.NewService(store, logger),
		categorize.NewService(store, logger),
		logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	summary := sweeper.Run(ctx)
	if summary.Errors > 0 {
		logger.Warn("sweep finished with errors", slog.Int("errors", summary.Errors))
		os.Exit(1)
	}
}
