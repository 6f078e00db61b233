package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendlog/internal/amqp"
	"spendlog/internal/config"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.DefaultConfig().Level,
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	processor := services.NewReportProcessor(repo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up the running month before waiting on the queue
	if err := processor.RefreshCurrentMonthAll(ctx); err != nil {
		logger.Error("Startup report refresh failed", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	// Consume change messages when AMQP is configured; the periodic sweep
	// below covers deployments without a broker.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			handler := func(msg *amqp.ExpenseChangeMessage) error {
				return processor.HandleExpenseChange(ctx, msg)
			}
			if err := amqpClient.ConsumeExpenseChanges(ctx, handler); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
				stop()
			}
		}()
	} else {
		logger.Info("AMQP disabled - relying on periodic refresh only")
	}

	logger.Info("Report refresh configured",
		"interval", cfg.ReportRefreshInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.ReportRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down report-worker")
			return
		case <-ticker.C:
			if err := processor.RefreshCurrentMonthAll(ctx); err != nil {
				logger.Error("Periodic report refresh failed", log.FieldError, err)
			}
		}
	}
}
