package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/project-queyk/queyk-backend/internal/earthquake/domain"
)

const earthquakeColumns = `id, magnitude, duration, created_at`

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresRepository returns an earthquake repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostgresRepository) Insert(ctx context.Context, magnitude float64, duration int) (*domain.Earthquake, error) {
	eq := &domain.Earthquake{
		ID:        uuid.New().String(),
		Magnitude: magnitude,
		Duration:  duration,
		CreatedAt: r.now(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO earthquake (`+earthquakeColumns+`) VALUES ($1, $2, $3, $4)`,
		eq.ID, eq.Magnitude, eq.Duration, eq.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return eq, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Earthquake, error) {
	var eq domain.Earthquake
	err := r.db.QueryRowContext(ctx, `SELECT `+earthquakeColumns+` FROM earthquake WHERE id = $1`, id).
		Scan(&eq.ID, &eq.Magnitude, &eq.Duration, &eq.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &eq, nil
}

// List returns every record, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Earthquake, error) {
	return r.query(ctx, `SELECT `+earthquakeColumns+` FROM earthquake ORDER BY created_at DESC`)
}

// ListBetween returns records created within [start, end], newest first.
func (r *PostgresRepository) ListBetween(ctx context.Context, start, end time.Time) ([]domain.Earthquake, error) {
	return r.query(ctx,
		`SELECT `+earthquakeColumns+` FROM earthquake WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC`,
		start, end)
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]domain.Earthquake, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Earthquake, 0)
	for rows.Next() {
		var eq domain.Earthquake
		if err := rows.Scan(&eq.ID, &eq.Magnitude, &eq.Duration, &eq.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, rows.Err()
}
