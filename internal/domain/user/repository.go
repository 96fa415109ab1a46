package user

import "context"

// Repository stores users
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateEmail replaces the address and bumps UpdatedAt on u
	UpdateEmail(ctx context.Context, u *User) error
}
