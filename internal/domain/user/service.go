package user

import "context"

// Service manages users and the records every user gets for free
type Service interface {
	GetByID(ctx context.Context, id int64) (*User, error)

	// Create stores a user and runs the created hooks
	Create(ctx context.Context, email, username string) (*User, error)

	// UpdateEmail changes the address and runs the email changed hooks.
	// An unchanged address is a no-op.
	UpdateEmail(ctx context.Context, id int64, email string) (*User, error)
}

// CreatedHook runs after a user row has been committed
type CreatedHook func(ctx context.Context, u *User) error

// EmailChangedHook runs after a new address has been committed
type EmailChangedHook func(ctx context.Context, u *User, previous string) error

// Hooks are the side effects of user changes. A failing hook is logged and
// never undoes the change.
type Hooks struct {
	Created      []CreatedHook
	EmailChanged []EmailChangedHook
}
