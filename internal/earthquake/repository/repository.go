package repository

import (
	"context"
	"time"

	"github.com/project-queyk/queyk-backend/internal/earthquake/domain"
)

// Repository defines persistence for earthquake records.
type Repository interface {
	Insert(ctx context.Context, magnitude float64, duration int) (*domain.Earthquake, error)
	// GetByID returns nil, nil when no record has the id.
	GetByID(ctx context.Context, id string) (*domain.Earthquake, error)
	List(ctx context.Context) ([]domain.Earthquake, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]domain.Earthquake, error)
}
