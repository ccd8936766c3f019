package cache

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/igolaizola/songseed/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Kind     string
	Page     int
	PageSize int
	// OlderThan selects the artifacts to prune by last update.
	OlderThan time.Duration
}

// List prints the cached artifacts, most recently updated first.
func List(ctx context.Context, cfg *Config) error {
	store, err := start(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Stop() }()

	artifacts, err := store.ListArtifacts(ctx, cfg.Page, cfg.PageSize, "updated_at desc", filters(cfg)...)
	if err != nil {
		return fmt.Errorf("cache: couldn't list artifacts: %w", err)
	}
	return printArtifacts(os.Stdout, artifacts)
}

// Prune deletes the artifacts that weren't updated for a while.
func Prune(ctx context.Context, cfg *Config) error {
	store, err := start(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Stop() }()

	before := time.Now().Add(-cfg.OlderThan)
	n, err := store.PruneArtifacts(ctx, before, filters(cfg)...)
	if err != nil {
		return fmt.Errorf("cache: couldn't prune artifacts: %w", err)
	}
	log.Printf("cache: %d artifacts pruned\n", n)
	return nil
}

func start(ctx context.Context, cfg *Config) (*storage.Store, error) {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("cache: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return nil, fmt.Errorf("cache: couldn't start orm store: %w", err)
	}
	return store, nil
}

func filters(cfg *Config) []storage.Filter {
	if cfg.Kind == "" {
		return nil
	}
	return []storage.Filter{storage.Where("kind = ?", cfg.Kind)}
}

func printArtifacts(w io.Writer, artifacts []*storage.Artifact) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tRENDERER\tSIZE\tHITS\tUPDATED")
	for _, a := range artifacts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", a.ID, a.Kind, a.Renderer, a.Size, a.Hits, a.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
