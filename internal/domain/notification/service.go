package notification

import (
	"context"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

// ProfileService defines the notification profile business logic
type ProfileService interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, userID, id int64) (*Profile, error)
	List(ctx context.Context, userID int64) ([]*Profile, error)
	Update(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, userID, id int64) error

	// Incidents returns the stored incidents selected by any filter of the profile
	Incidents(ctx context.Context, userID, id int64, limit, offset int) ([]*incident.Incident, error)
}

// DestinationService defines the destination business logic
type DestinationService interface {
	Create(ctx context.Context, d *Destination) error
	Get(ctx context.Context, userID, id int64) (*Destination, error)
	List(ctx context.Context, userID int64) ([]*Destination, error)

	// Update returns the stored destination. Changing the address of a synced
	// email destination first preserves the synced address in a new destination.
	Update(ctx context.Context, d *Destination) (*Destination, error)
	Delete(ctx context.Context, userID, id int64) error
}

// Service handles incident events end to end
type Service interface {
	HandleEvent(ctx context.Context, e *incident.Event) error

	// HandleEvents handles the valid events of a batch and reports the
	// rejected ones. An error means Unqueued holds events worth retrying.
	HandleEvents(ctx context.Context, events []*incident.Event) (*BatchResult, error)

	// Resolve returns the destinations of an event without dispatching
	Resolve(ctx context.Context, e *incident.Event) ([]*Destination, error)
}

// RejectedEvent is a batch entry that failed validation
type RejectedEvent struct {
	Index   int    `json:"index"`
	EventID int64  `json:"event_id"`
	Reason  string `json:"reason"`
}

// BatchResult reports how a batch was handled
type BatchResult struct {
	Accepted int
	Rejected []RejectedEvent
	// Unqueued lists valid events that were not queued because of an error
	Unqueued []*incident.Event
}

// Resolver finds the destinations an event must be delivered to
type Resolver interface {
	Resolve(ctx context.Context, e *incident.Event) ([]*Destination, error)
	// ResolveMany resolves a batch. The result is indexed like events.
	ResolveMany(ctx context.Context, events []*incident.Event) ([][]*Destination, error)
}

// Dispatcher delivers resolved destinations outside the caller's goroutine
type Dispatcher interface {
	Enqueue(e *incident.Event, destinations []*Destination) error
	Supports(m Medium) bool
}

// Sender delivers a message through one medium
type Sender interface {
	Medium() Medium
	Send(ctx context.Context, d *Destination, msg *Message) error
}
