package user

import (
	"strings"
	"time"
)

// User owns timeslots, filters, destinations and profiles. The email is
// managed by an outside identity source.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email" validate:"required,email"`
	Username  string    `json:"username" validate:"required,max=150"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail trims and lowercases an address for storage and comparison
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
