package user

import (
	"context"
)

// Repository persists users.
type Repository interface {
	// Create returns errors.ErrEmailDuplicate when the email is taken.
	Create(ctx context.Context, user *User) error

	// FindByID returns errors.ErrUserNotFound when no row exists.
	FindByID(ctx context.Context, id uint) (*User, error)

	// FindByIDs returns the users found, keyed by id. Missing ids are absent.
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*User, error)

	// FindByEmail returns errors.ErrUserNotFound when no row exists.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdateRole changes the role of an existing user.
	UpdateRole(ctx context.Context, id uint, role Role) error
}
