package migrate

import (
	"context"
	"fmt"
	"log"

	"github.com/igolaizola/songseed/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
}

// Run creates or updates the artifact cache tables.
func Run(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("migrate: couldn't create: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't start: %w", err)
	}
	defer func() { _ = store.Stop() }()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't migrate: %w", err)
	}
	version, err := store.Version(ctx)
	if err != nil {
		return fmt.Errorf("migrate: couldn't get version: %w", err)
	}
	log.Printf("migrate: %s database is up to date at version %d\n", cfg.DBType, version)
	return nil
}
