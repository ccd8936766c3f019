package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/igolaizola/songseed/pkg/cache"
	"github.com/igolaizola/songseed/pkg/image"
	"github.com/igolaizola/songseed/pkg/music"
	"github.com/igolaizola/songseed/pkg/seed"
	"github.com/igolaizola/songseed/pkg/sound"
)

// Mode selects how the audio preview is generated.
type Mode string

const (
	// ModeComposition renders the composed melody, bass and harmony.
	ModeComposition Mode = "composition"
	// ModeRiff renders a mono riff of 6 to 10 seconds.
	ModeRiff Mode = "riff"
)

func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case "", ModeComposition:
		return ModeComposition, nil
	case ModeRiff:
		return ModeRiff, nil
	}
	return "", invalid("unknown preview mode %q", v)
}

func (s *Service) key(kind string, q Query, variant string) cache.Key {
	return cache.Key{Kind: kind, Locale: q.Locale, Seed: q.Seed, Index: q.Index, Variant: variant}
}

// Cover renders the PNG cover of a song. A zero size uses the default.
func (s *Service) Cover(ctx context.Context, q Query, size int) ([]byte, error) {
	if err := s.validate(&q); err != nil {
		return nil, err
	}
	size = image.ClampSize(size)
	k := s.key("cover", q, strconv.Itoa(size))
	return s.cache.Get(ctx, k, "image/png", func() ([]byte, error) {
		song, err := s.songs.Song(q.Seed, q.Locale, q.Index)
		if err != nil {
			return nil, fmt.Errorf("catalog: couldn't generate song: %w", err)
		}
		sd := seed.Derive(q.Seed, q.Index, seed.PurposeCover, q.Locale).Uint64()
		b, err := image.RenderCover(sd, song.Title, song.Artist, size)
		if err != nil {
			return nil, fmt.Errorf("catalog: couldn't render cover: %w", err)
		}
		return b, nil
	})
}

// Preview renders the WAV preview of a song.
func (s *Service) Preview(ctx context.Context, q Query, mode Mode) ([]byte, error) {
	if err := s.validate(&q); err != nil {
		return nil, err
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	return s.preview(ctx, q, mode)
}

func (s *Service) preview(ctx context.Context, q Query, mode Mode) ([]byte, error) {
	k := s.key("preview", q, string(mode))
	return s.cache.Get(ctx, k, "audio/wav", func() ([]byte, error) {
		sd := seed.Derive(q.Seed, q.Index, seed.PurposeAudio, q.Locale).Uint64()
		if mode == ModeRiff {
			return s.riff.RenderRiff(sd), nil
		}
		return s.synth.Render(music.Compose(sd), 0), nil
	})
}

// Waveform plots the preview of a song as a PNG.
func (s *Service) Waveform(ctx context.Context, q Query, mode Mode) ([]byte, error) {
	if err := s.validate(&q); err != nil {
		return nil, err
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	k := s.key("waveform", q, string(mode))
	return s.cache.Get(ctx, k, "image/png", func() ([]byte, error) {
		wav, err := s.preview(ctx, q, mode)
		if err != nil {
			return nil, err
		}
		song, err := s.songs.Song(q.Seed, q.Locale, q.Index)
		if err != nil {
			return nil, fmt.Errorf("catalog: couldn't generate song: %w", err)
		}
		a, err := sound.NewAnalyzerFromBytes(song.Title, wav)
		if err != nil {
			return nil, fmt.Errorf("catalog: couldn't analyze preview: %w", err)
		}
		b, err := a.PlotWave(song.Title)
		if err != nil {
			return nil, fmt.Errorf("catalog: couldn't plot waveform: %w", err)
		}
		return b, nil
	})
}
