package dto

import (
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
)

// EventBatchRequest carries events that are resolved together
type EventBatchRequest struct {
	Events []*incident.Event `json:"events"`
}

// EventAcceptedResponse acknowledges ingested events
type EventAcceptedResponse struct {
	Accepted int                          `json:"accepted"`
	Rejected []notification.RejectedEvent `json:"rejected,omitempty"`
}

// ResolveResponse lists the destinations an event would be delivered to
type ResolveResponse struct {
	EventID      int64                       `json:"event_id"`
	Destinations []*notification.Destination `json:"destinations"`
}

// CoversResponse reports whether a timeslot covers a moment
type CoversResponse struct {
	At     string `json:"at"`
	Covers bool   `json:"covers"`
}
