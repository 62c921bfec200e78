package repository

import (
	"context"
	"time"

	"github.com/project-queyk/queyk-backend/internal/reading/domain"
)

// Repository defines persistence for sensor readings.
type Repository interface {
	// Insert stores a new reading built from fields and returns it with ID and CreatedAt assigned.
	Insert(ctx context.Context, f domain.Fields) (*domain.Reading, error)
	// GetByID returns the reading for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Reading, error)
	// List returns all readings ordered by created_at ascending.
	List(ctx context.Context) ([]domain.Reading, error)
	// ListBetween returns readings with start <= created_at <= end ordered by created_at ascending.
	ListBetween(ctx context.Context, start, end time.Time) ([]domain.Reading, error)
	// LastReadingTime returns the newest created_at, or nil if no reading was ever stored.
	LastReadingTime(ctx context.Context) (*time.Time, error)
}
