// Command reconcile repairs the cached book statuses against the ledger
// and can optionally inject corrective loans first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"circulog/internal/catalog"
	"circulog/internal/config"
	"circulog/internal/reconcile"
	"circulog/pkg/eventstore"
)

func main() {
	seedPath := flag.String("seed", "", "path to a JSON file of corrective loans to inject before reconciling")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(context.Background(), logger, *seedPath); err != nil {
		logger.Error("reconcile failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, seedPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	ledger := eventstore.NewPostgres(db.DB)
	books := catalog.NewPostgresStore(db)
	reconciler := reconcile.New(ledger, books, reconcile.WithLogger(logger))

	if seedPath != "" {
		loans, err := readSeedFile(seedPath)
		if err != nil {
			return err
		}
		if err := reconciler.Seed(ctx, loans); err != nil {
			return err
		}
	}

	return reconciler.Reconcile(ctx)
}

func readSeedFile(path string) ([]reconcile.SeedLoan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var loans []reconcile.SeedLoan
	if err := json.Unmarshal(data, &loans); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return loans, nil
}
