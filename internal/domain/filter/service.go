package filter

import (
	"context"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

// Service defines the interface for filter business logic
type Service interface {
	Create(ctx context.Context, f *Filter) error
	Get(ctx context.Context, userID, id int64) (*Filter, error)
	List(ctx context.Context, userID int64) ([]*Filter, error)
	Update(ctx context.Context, f *Filter) error
	Delete(ctx context.Context, userID, id int64) error

	// Validate checks criteria without storing them
	Validate(c Criteria) error

	// Preview returns the stored incidents the criteria would select
	Preview(ctx context.Context, c Criteria, limit, offset int) ([]*incident.Incident, error)

	// Incidents returns the stored incidents a saved filter selects
	Incidents(ctx context.Context, userID, id int64, limit, offset int) ([]*incident.Incident, error)
}
