// Package locale loads the word lists used to generate song text.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var data embed.FS

var (
	ErrUnsupported = errors.New("locale: unsupported locale")
	ErrMissingKey  = errors.New("locale: missing key")
)

// File is the on-disk format of a locale.
type File struct {
	Locale string              `yaml:"locale"`
	Name   string              `yaml:"name"`
	Words  map[string][]string `yaml:"words"`
}

// Info describes a supported locale.
type Info struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Provider is a read-only lookup of word lists by locale and key.
// It is loaded once and safe for concurrent use.
type Provider struct {
	files map[string]*File
	// codes maps lower case codes to canonical codes.
	codes map[string]string
}

// New loads the embedded locales. If dir isn't empty, every *.yaml file in
// it is loaded too: new locales are added and keys of existing locales are
// replaced.
func New(dir string) (*Provider, error) {
	p := &Provider{
		files: map[string]*File{},
		codes: map[string]string{},
	}
	if err := p.load(data, "data"); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := p.load(os.DirFS(dir), "."); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MustDefault returns a provider with the embedded locales.
func MustDefault() *Provider {
	p, err := New("")
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) load(fsys fs.FS, dir string) error {
	names, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.yaml")))
	if err != nil {
		return fmt.Errorf("locale: couldn't list files: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("locale: couldn't read %s: %w", name, err)
		}
		var f File
		if err := yaml.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("locale: couldn't parse %s: %w", name, err)
		}
		if f.Locale == "" {
			f.Locale = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
		p.add(&f)
	}
	return nil
}

func (p *Provider) add(f *File) {
	key := strings.ToLower(f.Locale)
	code, ok := p.codes[key]
	if !ok {
		p.codes[key] = f.Locale
		if f.Words == nil {
			f.Words = map[string][]string{}
		}
		p.files[f.Locale] = f
		return
	}
	existing := p.files[code]
	if f.Name != "" {
		existing.Name = f.Name
	}
	for k, v := range f.Words {
		existing.Words[k] = v
	}
	log.Printf("locale: %s extended with %d keys\n", code, len(f.Words))
}

// Canonical returns the canonical code of a locale, matched case
// insensitively.
func (p *Provider) Canonical(locale string) (string, bool) {
	code, ok := p.codes[strings.ToLower(strings.TrimSpace(locale))]
	return code, ok
}

func (p *Provider) IsSupported(locale string) bool {
	_, ok := p.Canonical(locale)
	return ok
}

// Supported returns the sorted canonical codes.
func (p *Provider) Supported() []string {
	codes := make([]string, 0, len(p.files))
	for code := range p.files {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Locales returns code and name of every supported locale, sorted by code.
func (p *Provider) Locales() []Info {
	var infos []Info
	for _, code := range p.Supported() {
		infos = append(infos, Info{Code: code, Name: p.files[code].Name})
	}
	return infos
}

// WordList returns the ordered candidates of a key. The returned slice must
// not be modified.
func (p *Provider) WordList(locale, key string) ([]string, error) {
	code, ok := p.Canonical(locale)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, locale)
	}
	list := p.files[code].Words[key]
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %q for %s", ErrMissingKey, key, code)
	}
	return list, nil
}
