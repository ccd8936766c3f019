package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Artifact is a cached rendering result. The ID is the full deterministic
// input tuple so rows never need invalidation, only pruning.
type Artifact struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Kind        string `gorm:"index;not null;default:''"`
	Renderer    string `gorm:"not null;default:''"`
	ContentType string `gorm:"not null;default:''"`
	Size        int    `gorm:"not null;default:0"`
	Data        []byte
	Hits        int `gorm:"not null;default:0"`
}

func (s *Store) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	var v Artifact
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get artifact %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetArtifact(ctx context.Context, v *Artifact) error {
	v.Size = len(v.Data)
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set artifact %s: %w", v.ID, err)
	}
	return nil
}

// HitArtifact increments the hit counter of an artifact.
func (s *Store) HitArtifact(ctx context.Context, id string) error {
	q := s.db.WithContext(ctx).Model(&Artifact{}).Where("id = ?", id)
	if err := q.UpdateColumn("hits", gorm.Expr("hits + ?", 1)).Error; err != nil {
		return fmt.Errorf("storage: failed to hit artifact %s: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteArtifact(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Artifact{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete artifact %s: %w", id, err)
	}
	return nil
}

// ListArtifacts lists artifacts without their data.
func (s *Store) ListArtifacts(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Artifact, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	vs := []*Artifact{}

	q := applyFilters(s.db.WithContext(ctx).Omit("data").Offset(offset).Limit(size), filter)
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list artifacts: %w", err)
	}
	return vs, nil
}

// PruneArtifacts deletes artifacts not updated since before and returns
// how many rows were removed.
func (s *Store) PruneArtifacts(ctx context.Context, before time.Time, filter ...Filter) (int64, error) {
	q := applyFilters(s.db.WithContext(ctx).Where("updated_at < ?", before), filter)
	res := q.Delete(&Artifact{})
	if res.Error != nil {
		return 0, fmt.Errorf("storage: failed to prune artifacts: %w", res.Error)
	}
	return res.RowsAffected, nil
}
