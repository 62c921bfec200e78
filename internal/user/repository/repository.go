package repository

import (
	"context"

	"github.com/project-queyk/queyk-backend/internal/user/domain"
)

// Repository defines persistence for alert recipients.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts u; an existing user with the same email is left untouched and created is false.
	Create(ctx context.Context, u *domain.User) (created bool, err error)
	// ListEmailRecipients returns addresses of users opted into alert emails; adminOnly restricts to admins.
	ListEmailRecipients(ctx context.Context, adminOnly bool) ([]string, error)
	// ListPushTokens returns Expo tokens of users opted into push; adminOnly restricts to admins.
	ListPushTokens(ctx context.Context, adminOnly bool) ([]string, error)
	// ListPhoneNumbers returns phone numbers of users opted into alerts; adminOnly restricts to admins.
	ListPhoneNumbers(ctx context.Context, adminOnly bool) ([]string, error)
}
