package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-views/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps view counts in the views table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Increment(ctx context.Context, slug string) error {
	return s.IncrementBy(ctx, slug, 1)
}

// IncrementBy adds n to the count of slug, creating the record at n.
func (s *GormStore) IncrementBy(ctx context.Context, slug string, n uint) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidCount
	}

	record := models.ViewRecord{Slug: slug, Count: n}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr(`"count" + ?`, n),
			"updated_at": time.Now(),
		}),
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("increment %s: %w", slug, result.Error)
	}
	return nil
}

func (s *GormStore) ListViews(ctx context.Context) ([]models.ViewRecord, error) {
	var views []models.ViewRecord
	if err := s.db.WithContext(ctx).Order("slug").Find(&views).Error; err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	return views, nil
}

// GetViews returns the stored count for slug, or 0 if it was never viewed.
func (s *GormStore) GetViews(ctx context.Context, slug string) (uint, error) {
	if err := ValidateSlug(slug); err != nil {
		return 0, err
	}
	var record models.ViewRecord
	err := s.db.WithContext(ctx).Where("slug = ?", slug).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get views %s: %w", slug, err)
	}
	return record.Count, nil
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
