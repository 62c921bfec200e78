package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/project-queyk/queyk-backend/internal/reading/domain"
)

const readingColumns = `id, si_average, si_minimum, si_maximum, battery, signal_strength, created_at`

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresRepository returns a reading repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Insert persists a new reading. ID and CreatedAt are assigned here, not by the database default,
// so the returned value is exactly what was written.
func (r *PostgresRepository) Insert(ctx context.Context, f domain.Fields) (*domain.Reading, error) {
	return r.InsertAt(ctx, f, r.now())
}

// InsertAt persists a reading stamped with at instead of the current time (used for seeding history).
// at is truncated to the microsecond precision of TIMESTAMPTZ.
func (r *PostgresRepository) InsertAt(ctx context.Context, f domain.Fields, at time.Time) (*domain.Reading, error) {
	rd := &domain.Reading{
		ID:             uuid.New().String(),
		SIAverage:      f.SIAverage,
		SIMinimum:      f.SIMinimum,
		SIMaximum:      f.SIMaximum,
		Battery:        f.Battery,
		SignalStrength: f.SignalStrength,
		CreatedAt:      at.UTC().Truncate(time.Microsecond),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reading (`+readingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rd.ID, rd.SIAverage, rd.SIMinimum, rd.SIMaximum, rd.Battery, rd.SignalStrength, rd.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// GetByID returns the reading for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Reading, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+readingColumns+` FROM reading WHERE id = $1`, id)
	rd, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rd, nil
}

// List returns every reading, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Reading, error) {
	return r.query(ctx, `SELECT `+readingColumns+` FROM reading ORDER BY created_at ASC`)
}

// ListBetween returns readings created within [start, end], oldest first.
func (r *PostgresRepository) ListBetween(ctx context.Context, start, end time.Time) ([]domain.Reading, error) {
	return r.query(ctx,
		`SELECT `+readingColumns+` FROM reading WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at ASC`,
		start, end,
	)
}

// LastReadingTime returns the created_at of the newest reading, or nil when the table is empty.
func (r *PostgresRepository) LastReadingTime(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := r.db.QueryRowContext(ctx, `SELECT created_at FROM reading ORDER BY created_at DESC LIMIT 1`).Scan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) query(ctx context.Context, q string, args ...any) ([]domain.Reading, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Reading, 0)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (domain.Reading, error) {
	var rd domain.Reading
	err := s.Scan(&rd.ID, &rd.SIAverage, &rd.SIMinimum, &rd.SIMaximum, &rd.Battery, &rd.SignalStrength, &rd.CreatedAt)
	return rd, err
}
