package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budgetgate/internal/amqp"
	"budgetgate/internal/config"
	"budgetgate/internal/export"
	applog "budgetgate/internal/log"
	"budgetgate/internal/services"
	"budgetgate/internal/storage"
	"budgetgate/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent("budgetgate-worker")
	applog.SetDefault(logger)

	logger.Info("Starting budgetgate-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The export mirror is optional; without a spreadsheet the worker still
	// drains the queue and runs the timed jobs.
	var exporter worker.TransactionExporter
	if os.Getenv("GOOGLE_SPREADSHEET_ID") != "" {
		sheets, err := export.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Sheets exporter", "error", err)
			os.Exit(1)
		}
		exporter = sheets
		logger.Info("Sheets exporter initialized")
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	exportWorker := worker.NewExportWorker(repo, exporter)
	processor := services.NewRecurringProcessor(repo, amqpClient)
	monitor := services.NewAlertMonitor(repo, amqpClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeTransactionCreated(ctx, func(msg *amqp.TransactionCreatedMessage) error {
			return exportWorker.HandleTransactionCreated(ctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ProcessInterval)
		defer ticker.Stop()

		runJobs := func(now time.Time) {
			if n, err := processor.ProcessDue(ctx, now); err != nil {
				logger.ErrorContext(ctx, "Recurring processing failed", "error", err)
			} else if n > 0 {
				logger.InfoContext(ctx, "Recurring processing done", "materialized", n)
			}
			if _, err := monitor.CheckBudgets(ctx, now); err != nil {
				logger.ErrorContext(ctx, "Budget alert check failed", "error", err)
			}
		}

		// Catch up immediately on startup, then on the configured interval.
		runJobs(time.Now())
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				runJobs(now)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
