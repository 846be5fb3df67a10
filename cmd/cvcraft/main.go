package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cvcraft/internal/cli"
	"cvcraft/internal/config"
	"cvcraft/internal/errors"
)

// exitBlocked separates a rejected export from other failures.
const exitBlocked = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A .env file is optional; environment variables set outside it win.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting cvcraft application",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"cache_backend", cfg.Cache.Backend,
		"min_export_score", cfg.Scoring.MinExportScore)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeExportBlocked {
			os.Exit(exitBlocked)
		}
		logger.LogError(err, "Application execution failed")
		os.Exit(1)
	}
}
