package notification

import "context"

// ProfileRepository defines the notification profile repository interface
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, userID, id int64) (*Profile, error)
	ListByUser(ctx context.Context, userID int64) ([]*Profile, error)
	Update(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, userID, id int64) error

	// ListActive returns every active profile of every user, hydrated with
	// its timeslot, filters and destinations
	ListActive(ctx context.Context) ([]*Profile, error)

	// CountByDestination counts profiles referencing the destination
	CountByDestination(ctx context.Context, destinationID int64) (int, error)
}

// DestinationRepository defines the destination repository interface
type DestinationRepository interface {
	Create(ctx context.Context, d *Destination) error
	GetByID(ctx context.Context, userID, id int64) (*Destination, error)
	ListByUser(ctx context.Context, userID int64) ([]*Destination, error)
	Update(ctx context.Context, d *Destination) error
	Delete(ctx context.Context, userID, id int64) error

	// GetMany returns destinations by ID regardless of owner. Missing IDs are absent from the map.
	GetMany(ctx context.Context, ids []int64) (map[int64]*Destination, error)
}

// MediaRepository defines the media record repository interface
type MediaRepository interface {
	List(ctx context.Context) ([]*Media, error)

	// MarkNotInstalled clears the installed flag. It is idempotent and
	// reports whether the flag actually changed.
	MarkNotInstalled(ctx context.Context, slug string) (bool, error)

	// MarkInstalled sets the installed flag, creating the record if needed
	MarkInstalled(ctx context.Context, slug, name string) error
}

// DeliveryRepository defines the delivery log repository interface
type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error
	Update(ctx context.Context, d *Delivery) error
	ListByEvent(ctx context.Context, eventID int64) ([]*Delivery, error)

	// ListRetryable returns failed deliveries with fewer than maxRetries retries
	ListRetryable(ctx context.Context, maxRetries, limit int) ([]*Delivery, error)
}
