package history

import (
	"context"
	"errors"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
	"gorm.io/gorm"
)

const defaultPageSize = 50

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
}

func (s *Store) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = shared.NewID("sub_")
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *Store) GetByID(ctx context.Context, ownerID, id string) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &r, err
}

// ListByOwner returns the owner's submissions, newest first. Category narrows
// the result when non-empty; limit falls back to the default page size.
func (s *Store) ListByOwner(ctx context.Context, ownerID, category string, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}

	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var recs []*Record
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&recs).Error
	return recs, err
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Record{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&Record{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
