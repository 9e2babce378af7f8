// Package store is the persistence and query layer for view counts.
package store

import (
	"context"
	"errors"

	"portfolio-views/models"
)

var (
	ErrInvalidSlug  = errors.New("invalid slug")
	ErrInvalidCount = errors.New("increment must be at least 1")
)

// MaxSlugLength matches the width of the slug column.
const MaxSlugLength = 255

// Store reads and increments view counts.
type Store interface {
	Increment(ctx context.Context, slug string) error
	IncrementBy(ctx context.Context, slug string, n uint) error
	ListViews(ctx context.Context) ([]models.ViewRecord, error)
	GetViews(ctx context.Context, slug string) (uint, error)
}

// ValidateSlug rejects identifiers that cannot be stored.
func ValidateSlug(slug string) error {
	if slug == "" || len(slug) > MaxSlugLength {
		return ErrInvalidSlug
	}
	return nil
}
