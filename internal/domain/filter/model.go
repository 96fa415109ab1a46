package filter

import "time"

// Filter is a named, user-owned set of criteria
type Filter struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name" validate:"required,max=40"`
	Criteria  Criteria  `json:"filter"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
