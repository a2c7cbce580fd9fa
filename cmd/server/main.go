package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pbm-protocol-server/internal/api"
	"github.com/pbm-protocol-server/internal/catalog"
	"github.com/pbm-protocol-server/internal/config"
	"github.com/pbm-protocol-server/internal/database"
	"github.com/pbm-protocol-server/internal/domain"
	"github.com/pbm-protocol-server/internal/logging"
	"github.com/pbm-protocol-server/internal/repository"
	"github.com/pbm-protocol-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.NewLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the protocol catalog
	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Path, logger)
	} else {
		cat, err = catalog.LoadEmbedded(logger)
	}
	if err != nil {
		logger.WithError(err).Fatal("Failed to load protocol catalog")
	}

	// Open the plan history store
	var store domain.PlanStore
	switch cfg.Store.Backend {
	case "postgres":
		db, err := database.NewConnection(ctx, cfg.Store.Postgres, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer db.Close()

		runner, err := database.NewMigrationRunner(
			configManager.GetPostgresURL(), cfg.Store.Postgres.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}

		store = repository.NewPostgresPlanStore(db.Pool, logger)

	case "sqlite":
		sqliteStore, err := repository.NewSQLitePlanStore(cfg.Store.SQLite.Path, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open SQLite store")
		}
		defer sqliteStore.Close()
		store = sqliteStore

	default:
		logger.WithField("backend", cfg.Store.Backend).Fatal("Unknown store backend")
	}

	if cfg.Store.BreakerEnabled {
		store = repository.NewBreakerPlanStore(store, logger)
	}

	// Wire the services
	deriver, err := service.NewDeriverService(logger, cat)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create deriver")
	}
	adapter := service.NewAdapterService()
	versioner := service.NewVersioningService(logger, store, adapter)

	// Create server
	server := api.NewServer(configManager, logger, cat, deriver, adapter, versioner, store)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(map[string]interface{}{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"backend": cfg.Store.Backend,
	}).Info("Starting protocol server")

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
