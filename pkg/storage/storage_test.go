package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := New("sqlite", filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start() err = %v; want nil", err)
	}
	t.Cleanup(func() { _ = store.Stop() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() err = %v; want nil", err)
	}
	return store
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("oracle", "", false); err == nil {
		t.Fatal("New(oracle) err = nil; want error")
	}
}

func TestMigrateTwice(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() err = %v; want nil", err)
	}
}

func TestVersion(t *testing.T) {
	store := newTestStore(t)
	v, err := store.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() err = %v; want nil", err)
	}
	if v != len(upgrades) {
		t.Fatalf("Version() = %d; want %d", v, len(upgrades))
	}
}

func TestUpgradeDropsUntagged(t *testing.T) {
	ctx := context.Background()
	store, err := New("sqlite", filepath.Join(t.TempDir(), "old.db"), false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start() err = %v; want nil", err)
	}
	t.Cleanup(func() { _ = store.Stop() })

	// Artifact table from before renderer tags
	if err := store.db.Exec("CREATE TABLE artifacts (id text PRIMARY KEY, kind text, data blob)").Error; err != nil {
		t.Fatal(err)
	}
	if err := store.db.Exec("INSERT INTO artifacts (id, kind, data) VALUES (?, ?, ?)", "cover|en-US|1|1|256", "cover", []byte{1}).Error; err != nil {
		t.Fatal(err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() err = %v; want nil", err)
	}
	if v, err := store.Version(ctx); err != nil || v != 1 {
		t.Fatalf("Version() = %d, %v; want 1", v, err)
	}
	if _, err := store.GetArtifact(ctx, "cover|en-US|1|1|256"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetArtifact() err = %v; want ErrNotFound", err)
	}
	if !store.db.Migrator().HasColumn(&Artifact{}, "renderer") {
		t.Fatal("artifacts table has no renderer column")
	}
}

func TestStartTimeout(t *testing.T) {
	store, err := New("sqlite", filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Start(ctx); err == nil {
		_ = store.Stop()
		t.Fatal("Start() with canceled context err = nil; want error")
	}
}

func TestArtifact(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.GetArtifact(ctx, "cover|en-US|1|1|256"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetArtifact() err = %v; want ErrNotFound", err)
	}

	v := &Artifact{ID: "cover|en-US|1|1|256", Kind: "cover", ContentType: "image/png", Data: []byte{1, 2, 3}}
	if err := store.SetArtifact(ctx, v); err != nil {
		t.Fatalf("SetArtifact() err = %v; want nil", err)
	}
	if err := store.HitArtifact(ctx, v.ID); err != nil {
		t.Fatalf("HitArtifact() err = %v; want nil", err)
	}
	got, err := store.GetArtifact(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetArtifact() err = %v; want nil", err)
	}
	if got.Size != 3 || got.Hits != 1 || string(got.Data) != "\x01\x02\x03" {
		t.Fatalf("GetArtifact() = %+v", got)
	}

	other := &Artifact{ID: "preview|en-US|1|1|composition", Kind: "preview", Data: []byte{4}}
	if err := store.SetArtifact(ctx, other); err != nil {
		t.Fatalf("SetArtifact() err = %v; want nil", err)
	}
	list, err := store.ListArtifacts(ctx, 1, 10, "id asc", Where("kind = ?", "cover"))
	if err != nil {
		t.Fatalf("ListArtifacts() err = %v; want nil", err)
	}
	if len(list) != 1 || list[0].ID != v.ID || list[0].Data != nil {
		t.Fatalf("ListArtifacts() = %+v", list)
	}

	n, err := store.PruneArtifacts(ctx, time.Now().Add(time.Hour), Where("kind = ?", "preview"))
	if err != nil {
		t.Fatalf("PruneArtifacts() err = %v; want nil", err)
	}
	if n != 1 {
		t.Fatalf("PruneArtifacts() = %d; want 1", n)
	}
	if err := store.DeleteArtifact(ctx, v.ID); err != nil {
		t.Fatalf("DeleteArtifact() err = %v; want nil", err)
	}
	list, err = store.ListArtifacts(ctx, 1, 10, "")
	if err != nil || len(list) != 0 {
		t.Fatalf("ListArtifacts() = %v, %v; want empty", list, err)
	}
}

func TestFileRef(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.GetFileRef(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetFileRef() err = %v; want ErrNotFound", err)
	}
	for _, ref := range []string{"a.zip", "b.zip"} {
		if err := store.SetFileRef(ctx, "k", ref); err != nil {
			t.Fatalf("SetFileRef() err = %v; want nil", err)
		}
	}
	ref, err := store.GetFileRef(ctx, "k")
	if err != nil || ref != "b.zip" {
		t.Fatalf("GetFileRef() = %q, %v; want b.zip", ref, err)
	}
	if err := store.DeleteFile(ctx, "k"); err != nil {
		t.Fatalf("DeleteFile() err = %v; want nil", err)
	}
}
