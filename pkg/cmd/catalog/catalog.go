package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/igolaizola/songseed/pkg/catalog"
	"github.com/igolaizola/songseed/pkg/locale"
)

type Config struct {
	Locales  string
	Locale   string
	Seed     uint64
	Likes    float64
	Page     int
	PageSize int
	Format   string
	Output   string
}

// Run prints a catalog page as json or csv.
func Run(ctx context.Context, cfg *Config) error {
	locales, err := locale.New(cfg.Locales)
	if err != nil {
		return fmt.Errorf("catalog: couldn't load locales: %w", err)
	}
	svc := catalog.New(&catalog.Config{Locales: locales})
	page, err := svc.Page(catalog.PageRequest{
		Locale:   cfg.Locale,
		Seed:     cfg.Seed,
		Likes:    cfg.Likes,
		Page:     cfg.Page,
		PageSize: cfg.PageSize,
	})
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("catalog: couldn't create %s: %w", cfg.Output, err)
		}
		defer f.Close()
		w = f
	}
	return Write(w, page, cfg.Format)
}

// Write encodes a page in the given format.
func Write(w io.Writer, page *catalog.Page, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(page); err != nil {
			return fmt.Errorf("catalog: couldn't encode json: %w", err)
		}
	case "csv":
		if err := gocsv.Marshal(page.Songs, w); err != nil {
			return fmt.Errorf("catalog: couldn't encode csv: %w", err)
		}
	default:
		return fmt.Errorf("catalog: unknown format %q", format)
	}
	return nil
}
