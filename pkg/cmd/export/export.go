package export

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/igolaizola/songseed/pkg/catalog"
	"github.com/igolaizola/songseed/pkg/ffmpeg"
	"github.com/igolaizola/songseed/pkg/filestore"
	"github.com/igolaizola/songseed/pkg/locale"
	"github.com/igolaizola/songseed/pkg/storage"
	"github.com/oklog/ulid/v2"
)

type Config struct {
	Debug   bool
	Locales string
	Locale  string
	Seed    uint64
	Indices string
	Format  string
	Mode    string
	Output  string
	FFmpeg  string

	DBType string
	DBConn string
	FSType string
	FSConn string
}

// Run writes a zip archive with the previews of the given indices and
// optionally uploads it to the file store.
func Run(ctx context.Context, cfg *Config) error {
	indices, err := ParseIndices(cfg.Indices)
	if err != nil {
		return err
	}
	locales, err := locale.New(cfg.Locales)
	if err != nil {
		return fmt.Errorf("export: couldn't load locales: %w", err)
	}
	svcCfg := &catalog.Config{Locales: locales}
	if cfg.Format == string(catalog.FormatMP3) {
		enc := ffmpeg.New(cfg.FFmpeg)
		if err := enc.Check(); err != nil {
			return err
		}
		svcCfg.Encoder = enc
	}
	svc := catalog.New(svcCfg)

	id := ulid.Make().String()
	output := cfg.Output
	if output == "" {
		output = id + ".zip"
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("export: couldn't create %s: %w", output, err)
	}
	req := catalog.ExportRequest{
		Locale:  cfg.Locale,
		Seed:    cfg.Seed,
		Indices: indices,
		Format:  catalog.Format(cfg.Format),
		Mode:    catalog.Mode(cfg.Mode),
	}
	if err := svc.Export(ctx, req, f); err != nil {
		_ = f.Close()
		_ = os.Remove(output)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: couldn't close %s: %w", output, err)
	}
	log.Printf("export: %d songs written to %s\n", len(indices), output)

	if cfg.FSType == "" {
		return nil
	}
	fs, err := filestore.New(ctx, cfg.FSType, cfg.FSConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("export: couldn't create file storage: %w", err)
	}
	ref, err := fs.SetZIP(ctx, output, id)
	if err != nil {
		return fmt.Errorf("export: couldn't upload %s: %w", output, err)
	}
	log.Printf("export: archive %s uploaded to %s\n", id, ref)

	if cfg.DBType == "" {
		return nil
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("export: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("export: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()
	if err := store.SetFileRef(ctx, id, ref); err != nil {
		return fmt.Errorf("export: couldn't save file ref: %w", err)
	}
	return nil
}

// ParseIndices parses a comma separated list of indices and inclusive
// ranges, e.g. "1,3,5-8".
func ParseIndices(v string) ([]int, error) {
	var indices []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil {
			return nil, fmt.Errorf("export: invalid index %q: %w", part, err)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(strings.TrimSpace(to))
			if err != nil {
				return nil, fmt.Errorf("export: invalid index %q: %w", part, err)
			}
		}
		if end < start {
			return nil, fmt.Errorf("export: invalid range %q", part)
		}
		if end-start >= catalog.MaxExport {
			return nil, fmt.Errorf("export: range %q is too large", part)
		}
		for i := start; i <= end; i++ {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("export: no indices")
	}
	return indices, nil
}
