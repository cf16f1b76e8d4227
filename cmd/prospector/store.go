package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FranksOps/prospector/internal/config"
	"github.com/FranksOps/prospector/internal/storage"
	"github.com/FranksOps/prospector/internal/storage/csvbackend"
	"github.com/FranksOps/prospector/internal/storage/jsonbackend"
	"github.com/FranksOps/prospector/internal/storage/postgres"
	"github.com/FranksOps/prospector/internal/storage/sqlite"
)

var errNoHistory = errors.New("no history source: set store.driver and store.dsn, or pass --from")

// openStore opens the history database named by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig) (storage.Backend, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "":
		return nil, errNoHistory
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// createExport truncates path and returns a backend writing the given format.
func createExport(cfg config.OutputConfig) (storage.Backend, error) {
	switch cfg.Format {
	case "json":
		return jsonbackend.Create(cfg.Path)
	default:
		return csvbackend.Create(cfg.Path)
	}
}

// openSource opens an existing export file, or the configured store when
// from is empty.
func openSource(ctx context.Context, cfg *config.Config, from string) (storage.Backend, error) {
	if from == "" {
		return openStore(ctx, cfg.Store)
	}
	if _, err := os.Stat(from); err != nil {
		return nil, fmt.Errorf("open %s: %w", from, err)
	}
	switch strings.ToLower(filepath.Ext(from)) {
	case ".json", ".ndjson", ".jsonl":
		return jsonbackend.Open(from)
	default:
		return csvbackend.Open(from)
	}
}

// saveAll writes every prospect to b.
func saveAll(ctx context.Context, b storage.Backend, prospects []*storage.Prospect) error {
	for _, p := range prospects {
		if err := b.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
