package export

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/igolaizola/songseed/pkg/storage"
)

func TestParseIndices(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		ok   bool
	}{
		{"1", []int{1}, true},
		{"1,3, 5-7", []int{1, 3, 5, 6, 7}, true},
		{"2-2,", []int{2}, true},
		{"", nil, false},
		{"a", nil, false},
		{"5-3", nil, false},
		{"1-x", nil, false},
		{"1-1000", nil, false},
	}
	for _, tt := range tests {
		got, err := ParseIndices(tt.in)
		if (err == nil) != tt.ok || !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("ParseIndices(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "songs.zip")
	cfg := &Config{
		Locale:  "ru-RU",
		Seed:    8,
		Indices: "1-3",
		Mode:    "riff",
		Output:  output,
		FSType:  "local",
		FSConn:  filepath.Join(dir, "store"),
		DBType:  "sqlite",
		DBConn:  filepath.Join(dir, "test.db"),
	}
	ctx := context.Background()

	// The file refs table must exist before the export
	store, err := storage.New(cfg.DBType, cfg.DBConn, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.OpenReader(output)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 3 {
		t.Fatalf("len(File) = %d; want 3", len(zr.File))
	}
	uploaded, err := filepath.Glob(filepath.Join(dir, "store", "exports", "*.zip"))
	if err != nil {
		t.Fatal(err)
	}
	if len(uploaded) != 1 {
		t.Fatalf("uploaded = %v; want one archive", uploaded)
	}
	if _, err := os.Stat(uploaded[0]); err != nil {
		t.Fatal(err)
	}
}
