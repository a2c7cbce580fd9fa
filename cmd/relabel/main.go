// Command relabel is a one-shot maintenance tool that repairs per-client
// plan label sequences after deletions or out-of-band edits. It operates on
// one client or on every client present in the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pbm-protocol-server/internal/config"
	"github.com/pbm-protocol-server/internal/domain"
	"github.com/pbm-protocol-server/internal/logging"
	"github.com/pbm-protocol-server/internal/repository"
	"github.com/pbm-protocol-server/internal/service"
)

func main() {
	clientID := flag.String("client", "", "client id to relabel; empty relabels every client in the store")
	flag.Parse()

	cfg := config.LoadLiteConfig()
	logger := logging.NewLogger(domain.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()

	var store domain.PlanStore
	switch cfg.StoreBackend {
	case "sqlite":
		sqliteStore, err := repository.NewSQLitePlanStore(cfg.SQLitePath, logger)
		if err != nil {
			log.Fatalf("Failed to open SQLite store: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore

	case "postgres":
		if cfg.PostgresURL == "" {
			log.Fatal("PBM_STORE_POSTGRES_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()
		store = repository.NewPostgresPlanStore(pool, logger)

	default:
		log.Fatalf("Unknown store backend %q", cfg.StoreBackend)
	}

	versioner := service.NewVersioningService(logger, store, service.NewAdapterService())

	clients := []string{*clientID}
	if *clientID == "" {
		var err error
		clients, err = store.ClientIDs(ctx)
		if err != nil {
			log.Fatalf("Failed to list clients: %v", err)
		}
		if len(clients) == 0 {
			fmt.Println("Store has no plans; nothing to relabel.")
			return
		}
	}

	total := 0
	failed := 0
	for _, id := range clients {
		updated, err := versioner.RelabelClient(ctx, id)
		if err != nil {
			logger.WithError(err).WithField("client_id", id).Error("Relabel failed")
			failed++
			continue
		}
		total += updated
	}

	fmt.Printf("Relabeled %d plan(s) across %d client(s).\n", total, len(clients))
	if failed > 0 {
		fmt.Printf("%d client(s) failed; see log output.\n", failed)
		os.Exit(1)
	}
}
