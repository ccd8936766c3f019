// Package songs generates the text identity of a song: title, artist,
// album, genre, review and lyrics.
package songs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/igolaizola/songseed/pkg/seed"
)

// Words is the word list lookup used to expand patterns.
type Words interface {
	WordList(locale, key string) ([]string, error)
}

type Song struct {
	Index    int    `json:"index" csv:"index"`
	Title    string `json:"title" csv:"title"`
	Artist   string `json:"artist" csv:"artist"`
	Album    string `json:"album" csv:"album"`
	Genre    string `json:"genre" csv:"genre"`
	Duration int    `json:"duration_seconds" csv:"duration_seconds"`
	Year     int    `json:"release_year" csv:"release_year"`
}

// Line is a timed lyric line. Time is in seconds from the start.
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

type Generator struct {
	words Words
}

func New(words Words) *Generator {
	return &Generator{words: words}
}

// Song returns the identity of the song at index. Every endpoint that shows
// or draws a song resolves it through this call.
func (g *Generator) Song(userSeed uint64, locale string, index int) (*Song, error) {
	rng := seed.Derive(userSeed, index, seed.PurposeSong, locale).Rng()
	e := g.expander(locale, rng)

	s := &Song{Index: index}
	s.Title = e.pattern("title_patterns")
	if rng.Float64() < 0.6 {
		s.Artist = e.pattern("band_patterns")
	} else {
		s.Artist = e.word("first_names") + " " + e.word("last_names")
	}
	if rng.Float64() < 0.3 {
		s.Album = e.word("single")
	} else {
		s.Album = e.pattern("album_patterns")
	}
	s.Genre = e.word("genres")
	s.Duration = rng.Int(120, 361)
	s.Year = rng.Int(1960, 2025)

	if e.err != nil {
		return nil, fmt.Errorf("songs: couldn't generate song %d: %w", index, e.err)
	}
	return s, nil
}

// Review writes a short review of the song.
func (g *Generator) Review(userSeed uint64, locale string, s *Song) (string, error) {
	rng := seed.Derive(userSeed, s.Index, seed.PurposeReview, locale).Rng()
	e := g.expander(locale, rng)
	e.vars = map[string]string{
		"title":  s.Title,
		"artist": s.Artist,
		"genre":  s.Genre,
	}

	var review string
	if rng.Float64() < 0.5 {
		review = e.pattern("review_templates")
	} else {
		a := e.word("review_openers")
		b := e.word("review_middles")
		three := rng.Float64() < 0.35
		var c string
		if three {
			c = e.word("review_middles")
		} else {
			c = e.word("review_closers")
		}
		d := e.word("review_closers")
		if three {
			review = strings.Join([]string{a, b, c, d}, " ")
		} else {
			review = strings.Join([]string{a, b, d}, " ")
		}
	}
	if e.err != nil {
		return "", fmt.Errorf("songs: couldn't generate review %d: %w", s.Index, e.err)
	}
	return review, nil
}

const (
	lyricsStart  = 0.5
	labelGap     = 0.5
	verseGap     = 2.5
	chorusGap    = 2.0
	sectionPause = 1.0
)

// Lyrics returns timed lyrics: verse, chorus, verse, chorus.
func (g *Generator) Lyrics(userSeed uint64, locale string, index int) ([]Line, error) {
	rng := seed.Derive(userSeed, index, seed.PurposeLyrics, locale).Rng()
	e := g.expander(locale, rng)

	verse := e.word("verse")
	chorus := e.word("chorus")

	var lines []Line
	t := lyricsStart
	add := func(text string, gap float64) {
		lines = append(lines, Line{Time: t, Text: text})
		t += gap
	}
	addVerse := func(n int) {
		add(fmt.Sprintf("[%s %d]", verse, n), labelGap)
		count := rng.Int(4, 7)
		for i := 0; i < count; i++ {
			add(e.pattern("lyric_patterns"), verseGap)
		}
	}
	addChorus := func() {
		add(fmt.Sprintf("[%s]", chorus), labelGap)
		count := rng.Int(3, 5)
		line := e.pattern("lyric_patterns")
		for i := 0; i < count; i++ {
			add(line, chorusGap)
		}
	}

	addVerse(1)
	t += sectionPause
	addChorus()
	t += sectionPause
	addVerse(2)
	t += sectionPause
	addChorus()

	if e.err != nil {
		return nil, fmt.Errorf("songs: couldn't generate lyrics %d: %w", index, e.err)
	}
	return lines, nil
}

// expander picks words and expands patterns with a shared generator. The
// first lookup error is kept and every later call is a no-op.
type expander struct {
	words  Words
	locale string
	rng    *seed.Rng
	vars   map[string]string
	err    error
}

func (g *Generator) expander(locale string, rng *seed.Rng) *expander {
	return &expander{words: g.words, locale: locale, rng: rng}
}

func (e *expander) word(key string) string {
	if e.err != nil {
		return ""
	}
	list, err := e.words.WordList(e.locale, key)
	if err != nil {
		e.err = err
		return ""
	}
	return e.rng.Pick(list)
}

// pattern picks one pattern of key and expands it.
func (e *expander) pattern(key string) string {
	return e.expand(e.word(key))
}

// expand replaces placeholders left to right. {year} is a number, names in
// vars are substituted and any other name is a word list.
func (e *expander) expand(p string) string {
	var sb strings.Builder
	for {
		open := strings.IndexByte(p, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(p[open:], '}')
		if end < 0 {
			break
		}
		end += open
		sb.WriteString(p[:open])
		name := p[open+1 : end]
		switch v, ok := e.vars[name]; {
		case ok:
			sb.WriteString(v)
		case name == "year":
			sb.WriteString(strconv.Itoa(e.rng.Int(1900, 2025)))
		default:
			sb.WriteString(e.word(name))
		}
		p = p[end+1:]
	}
	sb.WriteString(p)
	return sb.String()
}
