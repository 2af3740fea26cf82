package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/api"
	"github.com/anvil-lab/catalogue/internal/api/handlers"
	"github.com/anvil-lab/catalogue/internal/catalogue"
	"github.com/anvil-lab/catalogue/internal/config"
	"github.com/anvil-lab/catalogue/internal/database"
	"github.com/anvil-lab/catalogue/internal/services/csvimport"
	"github.com/anvil-lab/catalogue/internal/services/resolver"
	"github.com/anvil-lab/catalogue/internal/services/storage"
	"github.com/anvil-lab/catalogue/internal/services/upload"
	"github.com/anvil-lab/catalogue/internal/services/variant"
)

func main() {
	logger, _ := zap.NewProduction()
	if os.Getenv("CATALOGUE_ENVIRONMENT") == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Starting catalogue ingestion core...")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load configuration: %v", err)
	}

	sugar.Infof("Loaded configuration for environment: %s", cfg.Environment)

	db, err := database.New(cfg.Database)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	sugar.Info("Connected to database")

	if err := db.Migrate(); err != nil {
		sugar.Fatalf("Failed to run migrations: %v", err)
	}

	sugar.Info("Database migrations completed")

	ctx := context.Background()

	blobStore, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		sugar.Fatalf("Failed to initialize storage backend: %v", err)
	}

	catalog := catalogue.New(db, logger)
	variants := variant.New(blobStore, catalog, logger)
	uploadEngine := upload.New(catalog, blobStore, variants, logger)
	imageResolver := resolver.New(catalog, uploadEngine, logger)
	importEngine := csvimport.New(catalog, imageResolver, logger)

	importHandler := handlers.NewImportHandler(importEngine, catalog, logger)
	server := api.NewServer(cfg, db, uploadEngine, importEngine, importHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("Server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server exited properly")
}
