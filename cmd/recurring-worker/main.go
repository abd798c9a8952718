package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dops/internal/amqp"
	"dops/internal/config"
	"dops/internal/services"
	"dops/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Materialized entries go through the ledger service so they are
	// published to the bookkeeping sync queue like any other entry.
	var ledgerService *services.LedgerService
	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, generated entries will not sync", "error", err)
			ledgerService = services.NewLedgerService(repo, nil)
		} else {
			defer publisher.Close()
			ledgerService = services.NewLedgerService(repo, publisher)
		}
	} else {
		ledgerService = services.NewLedgerService(repo, nil)
	}

	processor := services.NewRecurringProcessor(repo, ledgerService, cfg.Participants)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	runOnce := func() {
		generated, err := processor.ProcessDue(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring pass failed", "error", err)
			return
		}
		if generated > 0 {
			logger.Info("Recurring pass completed", "entries_generated", generated)
		}
	}

	// One pass at startup so a restarted worker catches up immediately.
	runOnce()

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	logger.Info("Recurring worker running", "interval", cfg.RecurringInterval.String())
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			logger.Info("Recurring worker stopped gracefully")
			return
		}
	}
}
