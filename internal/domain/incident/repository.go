package incident

import "context"

// Repository defines the interface for incident data access
type Repository interface {
	// Upsert inserts or replaces the incident view including its tags
	Upsert(ctx context.Context, i *Incident) error

	// GetByID retrieves an incident by ID
	GetByID(ctx context.Context, id int64) (*Incident, error)

	// Find returns incidents matching the predicate ordered by ID.
	// A limit of zero returns every match.
	Find(ctx context.Context, p Predicate, limit, offset int) ([]*Incident, error)
}
