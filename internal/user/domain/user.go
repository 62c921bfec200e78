package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is a user's authority level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an alert recipient. Opt-in flags decide which channels reach them.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string // optional; used by the SMS channel
	Role  Role
	// AlertNotification opts the user into email (and SMS) alerts.
	AlertNotification bool
	// PushNotification opts the user into push alerts; requires ExpoPushToken.
	PushNotification bool
	ExpoPushToken    string
	CreatedAt        time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("name is required")
	}
	switch u.Role {
	case "":
		u.Role = RoleUser
	case RoleUser, RoleAdmin:
	default:
		return errors.New("role must be user or admin")
	}
	if u.PushNotification && u.ExpoPushToken == "" {
		return errors.New("push notifications require an expo push token")
	}
	return nil
}
