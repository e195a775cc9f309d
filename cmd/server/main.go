package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oakfieldhq/backoffice/internal/ai"
	"github.com/oakfieldhq/backoffice/internal/api"
	"github.com/oakfieldhq/backoffice/internal/application/categorize"
	"github.com/oakfieldhq/backoffice/internal/application/reconcile"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/config"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/logging"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
	"github.com/oakfieldhq/backoffice/internal/jobs"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configFile)

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "server")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	reconciler := reconcile.NewService(store, logger)
	categorizer := categorize.NewService(store, logger)

	var provider ai.Provider
	if key := cfg.GetAPIKey(cfg.OpenAI.APIKey, "OPENAI_API_KEY", "OPENAI_APIKEY"); key != "" {
		provider = ai.NewClient(key, cfg.OpenAI.Model)
		logger.Info("ai assistant enabled", "model", cfg.OpenAI.Model)
	} else {
		logger.Info("ai assistant disabled, no API key configured")
	}
	assistant := ai.NewAssistant(provider, logger)

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, store, reconciler, categorizer, assistant, logger)

	var sweeper *jobs.Sweeper
	if cfg.Sweep.Enabled {
		sweeper = jobs.NewSweeper(store, reconciler, categorizer, logger)
		if err := sweeper.Start(cfg.Sweep.Schedule); err != nil {
			logger.Error("failed to schedule sweep", "error", err)
			os.Exit(1)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
