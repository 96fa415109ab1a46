package timeslot

import (
	"context"
	"time"
)

// Service defines the interface for timeslot business logic
type Service interface {
	Create(ctx context.Context, ts *Timeslot) error
	Get(ctx context.Context, userID, id int64) (*Timeslot, error)
	List(ctx context.Context, userID int64) ([]*Timeslot, error)
	Update(ctx context.Context, ts *Timeslot) error
	Delete(ctx context.Context, userID, id int64) error

	// Covers checks a stored timeslot against a timestamp in the configured zone
	Covers(ctx context.Context, userID, id int64, at time.Time) (bool, error)
}
