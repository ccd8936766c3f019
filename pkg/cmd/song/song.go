package song

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/igolaizola/songseed/pkg/catalog"
	"github.com/igolaizola/songseed/pkg/image"
	"github.com/igolaizola/songseed/pkg/locale"
)

type Config struct {
	Debug       bool
	Locales     string
	Locale      string
	Seed        uint64
	Index       int
	Likes       float64
	Size        int
	Mode        string
	CoverFormat string
	Output      string
}

// Run writes the details, cover and preview of one song to a folder.
func Run(ctx context.Context, cfg *Config) error {
	locales, err := locale.New(cfg.Locales)
	if err != nil {
		return fmt.Errorf("song: couldn't load locales: %w", err)
	}
	svc := catalog.New(&catalog.Config{Locales: locales})
	q := catalog.Query{Locale: cfg.Locale, Seed: cfg.Seed, Index: cfg.Index}

	details, err := svc.Details(q, cfg.Likes)
	if err != nil {
		return err
	}
	cover, err := svc.Cover(ctx, q, cfg.Size)
	if err != nil {
		return err
	}
	preview, err := svc.Preview(ctx, q, catalog.Mode(cfg.Mode))
	if err != nil {
		return err
	}
	lyrics, err := svc.Lyrics(q)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("song: couldn't create output folder: %w", err)
	}
	js, err := json.MarshalIndent(struct {
		*catalog.Details
		Lyrics interface{} `json:"lyrics"`
	}{details, lyrics}, "", "  ")
	if err != nil {
		return fmt.Errorf("song: couldn't encode details: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Output, "details.json"), js, 0644); err != nil {
		return fmt.Errorf("song: couldn't write details: %w", err)
	}

	format := cfg.CoverFormat
	if format == "" {
		format = "png"
	}
	img, err := png.Decode(bytes.NewReader(cover))
	if err != nil {
		return fmt.Errorf("song: couldn't decode cover: %w", err)
	}
	if err := image.Save(filepath.Join(cfg.Output, "cover."+format), img); err != nil {
		return fmt.Errorf("song: couldn't save cover: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Output, "preview.wav"), preview, 0644); err != nil {
		return fmt.Errorf("song: couldn't write preview: %w", err)
	}
	log.Printf("song: %q by %s written to %s\n", details.Title, details.Artist, cfg.Output)
	return nil
}
