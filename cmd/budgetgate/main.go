package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetgate/internal/admission"
	"budgetgate/internal/amqp"
	"budgetgate/internal/cache"
	"budgetgate/internal/config"
	apphttp "budgetgate/internal/http"
	"budgetgate/internal/identity"
	applog "budgetgate/internal/log"
	"budgetgate/internal/ratelimit"
	"budgetgate/internal/services"
	"budgetgate/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting budgetgate API")

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

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Capacity:        cfg.BucketCapacity,
		RefillPerSecond: cfg.RefillPerSecond(),
		MaxPrincipals:   cfg.MaxBucketEntries,
	})
	gates := map[admission.ActionKind]bool{
		admission.ActionBudgetWrite:      cfg.GateBudgetWrites,
		admission.ActionTransactionWrite: cfg.GateTransactionWrites,
	}
	pipeline := admission.NewPipeline(admission.NewHeuristicScreener(), limiter, gates)

	resolver := identity.NewHeaderResolver(cfg.PrincipalHeader, nil, 1024, cfg.IdentityCacheTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(resolver.SessionCache())
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	// The broker is optional for the API: without it mutations still commit,
	// only the invalidation and export events are skipped.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	budgets := services.NewBudgetService(repo, pipeline, events)
	transactions := services.NewTransactionService(repo, pipeline, events)

	srv := apphttp.NewServer(":"+cfg.Port, resolver, budgets, transactions)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting budgetgate server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
