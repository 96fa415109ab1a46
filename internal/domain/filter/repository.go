package filter

import "context"

// Repository defines the interface for filter data access
type Repository interface {
	// Create stores a new filter
	Create(ctx context.Context, f *Filter) error

	// GetByID retrieves a filter owned by the user
	GetByID(ctx context.Context, userID, id int64) (*Filter, error)

	// ListByUser retrieves every filter owned by the user
	ListByUser(ctx context.Context, userID int64) ([]*Filter, error)

	// Update updates name and criteria
	Update(ctx context.Context, f *Filter) error

	// Delete deletes a filter
	Delete(ctx context.Context, userID, id int64) error

	// GetMany retrieves filters by ID regardless of owner
	GetMany(ctx context.Context, ids []int64) (map[int64]*Filter, error)
}
