package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/project-queyk/queyk-backend/internal/user/domain"
)

const userColumns = `id, name, email, phone, role, alert_notification, push_notification, expo_push_token, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, email)
	var (
		u            domain.User
		phone, token sql.NullString
		role         string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &phone, &role, &u.AlertNotification, &u.PushNotification, &token, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Phone = phone.String
	u.ExpoPushToken = token.String
	u.Role = domain.Role(role)
	return &u, nil
}

// Create validates and inserts u, assigning ID and CreatedAt when unset.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, err
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO "user" (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (email) DO NOTHING`,
		u.ID, u.Name, u.Email, nullable(u.Phone), string(u.Role), u.AlertNotification, u.PushNotification, nullable(u.ExpoPushToken), u.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListEmailRecipients returns addresses of users with alert_notification set.
func (r *PostgresRepository) ListEmailRecipients(ctx context.Context, adminOnly bool) ([]string, error) {
	return r.strings(ctx,
		`SELECT email FROM "user" WHERE alert_notification AND ($1 = false OR role = 'admin') ORDER BY email`,
		adminOnly)
}

// ListPushTokens returns Expo push tokens of users with push_notification set.
func (r *PostgresRepository) ListPushTokens(ctx context.Context, adminOnly bool) ([]string, error) {
	return r.strings(ctx,
		`SELECT expo_push_token FROM "user" WHERE push_notification AND expo_push_token IS NOT NULL AND expo_push_token <> '' AND ($1 = false OR role = 'admin') ORDER BY created_at`,
		adminOnly)
}

// ListPhoneNumbers returns phone numbers of users with alert_notification set.
func (r *PostgresRepository) ListPhoneNumbers(ctx context.Context, adminOnly bool) ([]string, error) {
	return r.strings(ctx,
		`SELECT phone FROM "user" WHERE alert_notification AND phone IS NOT NULL AND phone <> '' AND ($1 = false OR role = 'admin') ORDER BY created_at`,
		adminOnly)
}

func (r *PostgresRepository) strings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
