package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/user"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

const userColumns = `id, email, username, created_at, updated_at`

// UserRepository implements user.Repository
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) user.Repository {
	return &UserRepository{db: db}
}

// Create inserts u and sets its ID and timestamps
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, username, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Email, u.Username, now, now,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("User with this email or username already exists")
		}
		return errors.DatabaseError("Failed to create user", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// UpdateEmail stores the new address of u
func (r *UserRepository) UpdateEmail(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = $1, updated_at = $2 WHERE id = $3`,
		u.Email, now, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("Another user already has this email")
		}
		return errors.DatabaseError("Failed to update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("User")
	}
	u.UpdatedAt = now
	return nil
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.CreatedAt, &u.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("User")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get user", err)
	}
	return &u, nil
}
