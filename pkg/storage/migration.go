package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// SchemaVersion is the single row recording the last schema upgrade
// applied to the database.
type SchemaVersion struct {
	ID        string `gorm:"primarykey"`
	CreatedAt int64
	UpdatedAt int64

	Version int `gorm:"not null;default:0"`
}

func (SchemaVersion) TableName() string {
	return "schema_versions"
}

type upgrade struct {
	name string
	run  func(m gorm.Migrator) error
}

// upgrades run in order before auto migration. Version n means the first n
// upgrades have been applied.
var upgrades = []upgrade{
	{
		// Artifacts rendered before the renderer tag existed can't be told
		// apart from current ones.
		name: "drop untagged artifacts",
		run: func(m gorm.Migrator) error {
			if !m.HasTable(&Artifact{}) || m.HasColumn(&Artifact{}, "renderer") {
				return nil
			}
			return m.DropTable(&Artifact{})
		},
	},
}

// Version returns the schema version of the database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var v SchemaVersion
	if err := s.db.WithContext(ctx).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: couldn't get schema version: %w", err)
	}
	return v.Version, nil
}

// upgrade applies pending upgrades. A fresh database starts at the latest
// version since auto migration creates the current schema directly.
func (s *Store) upgrade(ctx context.Context, fresh bool) error {
	db := s.db.WithContext(ctx)
	m := db.Migrator()
	if !m.HasTable(&SchemaVersion{}) {
		if err := m.CreateTable(&SchemaVersion{}); err != nil {
			return fmt.Errorf("storage: couldn't create schema versions: %w", err)
		}
	}

	var v SchemaVersion
	err := db.First(&v).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		v = SchemaVersion{ID: ulid.Make().String()}
		if fresh {
			v.Version = len(upgrades)
		}
		if err := db.Create(&v).Error; err != nil {
			return fmt.Errorf("storage: couldn't save schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("storage: couldn't get schema version: %w", err)
	}

	for v.Version < len(upgrades) {
		u := upgrades[v.Version]
		v.Version++
		log.Printf("storage: upgrade %d: %s\n", v.Version, u.name)
		if err := u.run(m); err != nil {
			return fmt.Errorf("storage: upgrade %d (%s): %w", v.Version, u.name, err)
		}
		if err := db.Save(&v).Error; err != nil {
			return fmt.Errorf("storage: couldn't save schema version: %w", err)
		}
	}
	return nil
}
