package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/db"
	"github.com/BerylCAtieno/finreport/internal/repository"
	"github.com/BerylCAtieno/finreport/internal/router"
	"github.com/BerylCAtieno/finreport/internal/services"
	"github.com/BerylCAtieno/finreport/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	// Run history is only kept when a database is configured
	var runs repository.RunRepository
	if cfg.AuditEnabled() {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("Failed to run migrations", "error", err)
		}

		database, err := db.NewSQLiteDB(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer database.Close()

		runs = repository.NewRunRepository(database)
	}

	svc, err := services.NewReportService(context.Background(), cfg, runs, logger)
	if err != nil {
		logger.Fatal("Failed to initialize report service", "error", err)
	}
	defer svc.Close()

	handler := router.NewRouter(svc, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"strategy", cfg.Strategy,
			"response_format", cfg.ResponseFormat,
			"ocr_engine", cfg.OCREngine,
			"workers", cfg.Workers,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
