// Package catalog serves the synthetic song catalog. Every artifact of a
// song is derived from (seed, locale, index) and nothing else.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/igolaizola/songseed/pkg/cache"
	"github.com/igolaizola/songseed/pkg/likes"
	"github.com/igolaizola/songseed/pkg/locale"
	"github.com/igolaizola/songseed/pkg/seed"
	"github.com/igolaizola/songseed/pkg/songs"
	"github.com/igolaizola/songseed/pkg/sound"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxExport       = 50
)

var ErrInvalidArgument = errors.New("catalog: invalid argument")

// UnsupportedLocaleError is returned for locales without word lists.
type UnsupportedLocaleError struct {
	Locale    string
	Supported []string
}

func (e *UnsupportedLocaleError) Error() string {
	return fmt.Sprintf("catalog: unsupported locale %q (supported: %s)", e.Locale, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedLocaleError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Encoder transcodes WAV previews for exports.
type Encoder interface {
	MP3(ctx context.Context, wav []byte) ([]byte, error)
}

type Config struct {
	Locales *locale.Provider
	// Cache is optional.
	Cache *cache.Cache
	// Encoder is only needed for mp3 exports.
	Encoder Encoder
	// BaseURL prefixes the artifact links returned by Details.
	BaseURL string
}

type Service struct {
	locales *locale.Provider
	songs   *songs.Generator
	cache   *cache.Cache
	encoder Encoder
	baseURL string
	synth   *sound.Synthesizer
	riff    *sound.Synthesizer
}

func New(cfg *Config) *Service {
	riff := sound.DefaultSynthesizer()
	riff.Channels = 1
	return &Service{
		locales: cfg.Locales,
		songs:   songs.New(cfg.Locales),
		cache:   cfg.Cache,
		encoder: cfg.Encoder,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		synth:   sound.DefaultSynthesizer(),
		riff:    riff,
	}
}

// Query identifies one song.
type Query struct {
	Locale string `json:"locale"`
	Seed   uint64 `json:"seed"`
	Index  int    `json:"index"`
}

func (s *Service) Locales() []locale.Info {
	return s.locales.Locales()
}

func (s *Service) locale(code string) (string, error) {
	canonical, ok := s.locales.Canonical(code)
	if !ok {
		return "", &UnsupportedLocaleError{Locale: code, Supported: s.locales.Supported()}
	}
	return canonical, nil
}

// validate canonicalizes the locale and checks the index.
func (s *Service) validate(q *Query) error {
	code, err := s.locale(q.Locale)
	if err != nil {
		return err
	}
	if q.Index < 1 {
		return invalid("index must be >= 1, got %d", q.Index)
	}
	q.Locale = code
	return nil
}

func validateLikes(avg float64) error {
	if math.IsNaN(avg) || avg < likes.Min || avg > likes.Max {
		return invalid("likes must be in [%d, %d], got %v", likes.Min, likes.Max, avg)
	}
	return nil
}

func (s *Service) likes(q Query, avg float64) int {
	return likes.Estimate(seed.Derive(q.Seed, q.Index, seed.PurposeLikes, q.Locale).Uint64(), avg)
}

type Row struct {
	songs.Song
	Likes int `json:"likes" csv:"likes"`
}

type PageRequest struct {
	Locale   string
	Seed     uint64
	Likes    float64
	Page     int
	PageSize int
}

type Page struct {
	Locale   string `json:"locale"`
	Seed     uint64 `json:"seed"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Songs    []*Row `json:"songs"`
}

// Page lists the songs of a page. Page p holds indexes
// (p-1)*size+1 to p*size.
func (s *Service) Page(req PageRequest) (*Page, error) {
	code, err := s.locale(req.Locale)
	if err != nil {
		return nil, err
	}
	if err := validateLikes(req.Likes); err != nil {
		return nil, err
	}
	if req.Page < 1 {
		return nil, invalid("page must be >= 1, got %d", req.Page)
	}
	if req.PageSize < 1 || req.PageSize > MaxPageSize {
		return nil, invalid("page size must be in [1, %d], got %d", MaxPageSize, req.PageSize)
	}
	if req.Page > (math.MaxInt32-1)/req.PageSize {
		return nil, invalid("page %d out of range", req.Page)
	}

	p := &Page{Locale: code, Seed: req.Seed, Page: req.Page, PageSize: req.PageSize}
	first := (req.Page-1)*req.PageSize + 1
	for i := 0; i < req.PageSize; i++ {
		q := Query{Locale: code, Seed: req.Seed, Index: first + i}
		song, err := s.songs.Song(q.Seed, q.Locale, q.Index)
		if err != nil {
			return nil, fmt.Errorf("catalog: couldn't generate page %d: %w", req.Page, err)
		}
		p.Songs = append(p.Songs, &Row{Song: *song, Likes: s.likes(q, req.Likes)})
	}
	return p, nil
}

type Details struct {
	Locale string `json:"locale"`
	Seed   uint64 `json:"seed"`
	songs.Song
	Likes       int    `json:"likes"`
	Review      string `json:"review"`
	CoverURL    string `json:"cover_url"`
	PreviewURL  string `json:"preview_url"`
	LyricsURL   string `json:"lyrics_url"`
	WaveformURL string `json:"waveform_url"`
}

// Details returns the full description of a song with links to its
// artifacts.
func (s *Service) Details(q Query, avg float64) (*Details, error) {
	if err := s.validate(&q); err != nil {
		return nil, err
	}
	if err := validateLikes(avg); err != nil {
		return nil, err
	}
	song, err := s.songs.Song(q.Seed, q.Locale, q.Index)
	if err != nil {
		return nil, fmt.Errorf("catalog: couldn't generate song: %w", err)
	}
	review, err := s.songs.Review(q.Seed, q.Locale, song)
	if err != nil {
		return nil, fmt.Errorf("catalog: couldn't generate review: %w", err)
	}
	return &Details{
		Locale:      q.Locale,
		Seed:        q.Seed,
		Song:        *song,
		Likes:       s.likes(q, avg),
		Review:      review,
		CoverURL:    s.link(q, "cover"),
		PreviewURL:  s.link(q, "preview"),
		LyricsURL:   s.link(q, "lyrics"),
		WaveformURL: s.link(q, "waveform"),
	}, nil
}

func (s *Service) link(q Query, artifact string) string {
	v := url.Values{}
	v.Set("locale", q.Locale)
	v.Set("seed", strconv.FormatUint(q.Seed, 10))
	return fmt.Sprintf("%s/api/songs/%d/%s?%s", s.baseURL, q.Index, artifact, v.Encode())
}

// Lyrics returns the timed lyrics of a song.
func (s *Service) Lyrics(q Query) ([]songs.Line, error) {
	if err := s.validate(&q); err != nil {
		return nil, err
	}
	lines, err := s.songs.Lyrics(q.Seed, q.Locale, q.Index)
	if err != nil {
		return nil, fmt.Errorf("catalog: couldn't generate lyrics: %w", err)
	}
	return lines, nil
}
