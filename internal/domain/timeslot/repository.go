package timeslot

import "context"

// Repository defines the interface for timeslot data access
type Repository interface {
	// Create stores the timeslot and its recurrences
	Create(ctx context.Context, ts *Timeslot) error

	// GetByID retrieves a timeslot owned by the user
	GetByID(ctx context.Context, userID, id int64) (*Timeslot, error)

	// ListByUser retrieves every timeslot owned by the user
	ListByUser(ctx context.Context, userID int64) ([]*Timeslot, error)

	// Update renames the timeslot and replaces all recurrences in one transaction
	Update(ctx context.Context, ts *Timeslot) error

	// Delete deletes a timeslot
	Delete(ctx context.Context, userID, id int64) error

	// GetMany retrieves timeslots by ID regardless of owner
	GetMany(ctx context.Context, ids []int64) (map[int64]*Timeslot, error)
}
