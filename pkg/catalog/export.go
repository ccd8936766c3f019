package catalog

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Format is the audio format of exported previews.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
)

func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(v)) {
	case "", FormatWAV:
		return FormatWAV, nil
	case FormatMP3:
		return FormatMP3, nil
	}
	return "", invalid("unknown export format %q", v)
}

type ExportRequest struct {
	Locale  string `json:"locale"`
	Seed    uint64 `json:"seed"`
	Indices []int  `json:"indices"`
	Format  Format `json:"format"`
	Mode    Mode   `json:"mode"`
}

// archiveTime is the modification time of every archive entry so archives
// are byte identical across runs.
var archiveTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Export writes a ZIP archive with one preview per index, named
// "Artist - Title.ext".
func (s *Service) Export(ctx context.Context, req ExportRequest, w io.Writer) error {
	code, err := s.locale(req.Locale)
	if err != nil {
		return err
	}
	if len(req.Indices) == 0 {
		return invalid("no indices to export")
	}
	if len(req.Indices) > MaxExport {
		return invalid("at most %d songs can be exported, got %d", MaxExport, len(req.Indices))
	}
	for _, i := range req.Indices {
		if i < 1 {
			return invalid("index must be >= 1, got %d", i)
		}
	}
	format, err := ParseFormat(string(req.Format))
	if err != nil {
		return err
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return err
	}
	if format == FormatMP3 && s.encoder == nil {
		return fmt.Errorf("catalog: mp3 export requires an encoder")
	}

	zw := zip.NewWriter(w)
	names := map[string]int{}
	for _, index := range req.Indices {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := Query{Locale: code, Seed: req.Seed, Index: index}
		song, err := s.songs.Song(q.Seed, q.Locale, q.Index)
		if err != nil {
			return fmt.Errorf("catalog: couldn't generate song %d: %w", index, err)
		}
		b, err := s.preview(ctx, q, mode)
		if err != nil {
			return fmt.Errorf("catalog: couldn't render preview %d: %w", index, err)
		}
		if format == FormatMP3 {
			b, err = s.encoder.MP3(ctx, b)
			if err != nil {
				return fmt.Errorf("catalog: couldn't encode preview %d: %w", index, err)
			}
		}
		name := entryName(names, song.Artist, song.Title, string(format))
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: archiveTime,
		})
		if err != nil {
			return fmt.Errorf("catalog: couldn't create %s: %w", name, err)
		}
		if _, err := f.Write(b); err != nil {
			return fmt.Errorf("catalog: couldn't write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("catalog: couldn't close archive: %w", err)
	}
	return nil
}

// entryName returns a unique file name, numbering repeated names.
func entryName(seen map[string]int, artist, title, ext string) string {
	base := Sanitize(artist + " - " + title)
	seen[base]++
	if n := seen[base]; n > 1 {
		base = fmt.Sprintf("%s (%d)", base, n)
	}
	return base + "." + ext
}

// Sanitize removes characters that aren't allowed in file names.
func Sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return "untitled"
	}
	return name
}
