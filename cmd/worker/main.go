package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/report"
	"shopcsv/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.NewForEnvironment(cfg.LogLevel, cfg.Env)
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	generator := report.NewGenerator(cfg, logger, report.ShopifyAPIFactory(cfg, logger))

	// Initialize worker
	w := worker.New(cfg, logger, db, generator)

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting worker...")
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info("Shutting down worker...")
	w.Stop()
	<-done
}
