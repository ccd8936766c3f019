package song

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/igolaizola/songseed/pkg/sound"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Locale:      "en-US",
		Seed:        1,
		Index:       5,
		Likes:       5,
		Mode:        "riff",
		CoverFormat: "jpg",
		Output:      dir,
	}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	js, err := os.ReadFile(filepath.Join(dir, "details.json"))
	if err != nil {
		t.Fatal(err)
	}
	var details struct {
		Title  string            `json:"title"`
		Index  int               `json:"index"`
		Lyrics []json.RawMessage `json:"lyrics"`
	}
	if err := json.Unmarshal(js, &details); err != nil {
		t.Fatal(err)
	}
	if details.Title == "" || details.Index != 5 || len(details.Lyrics) == 0 {
		t.Fatalf("details = %+v", details)
	}
	if _, err := os.Stat(filepath.Join(dir, "cover.jpg")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "preview.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sound.DecodeWAV(b); err != nil {
		t.Fatal(err)
	}
}

func TestRunInvalid(t *testing.T) {
	cfg := &Config{Locale: "en-US", Index: 0, Output: t.TempDir()}
	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("Run() err = nil; want invalid index")
	}
}
