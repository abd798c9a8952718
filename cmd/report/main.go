package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"dops/internal/config"
	"dops/internal/services"
	"dops/internal/slack"
	"dops/internal/storage"
)

// report is a one-shot binary meant to run from cron: it assembles the
// daily or weekly digest and posts it to Slack, then exits.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.SlackWebhookURL == "" {
		logger.Error("SLACK_WEBHOOK_URL is required for the report binary")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	slackClient, err := slack.NewClient(cfg.SlackWebhookURL)
	if err != nil {
		logger.Error("Failed to initialize Slack client", "error", err)
		os.Exit(1)
	}

	builder := services.NewReportBuilder(repo, slackClient)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := builder.Run(ctx, cfg.ReportMode, time.Now()); err != nil {
		logger.Error("Report failed", "error", err, "mode", cfg.ReportMode)
		os.Exit(1)
	}
	logger.Info("Report sent", "mode", cfg.ReportMode)
}
