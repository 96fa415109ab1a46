package client

import (
	"encoding/json"
	"time"
)

// Incident is the routing view of an incident
type Incident struct {
	ID          int64     `json:"id"`
	Level       int       `json:"level"`
	Open        bool      `json:"open"`
	Acked       bool      `json:"acked"`
	Stateful    bool      `json:"stateful"`
	SourceID    int64     `json:"source_id"`
	StartTime   time.Time `json:"start_time"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
}

// Event is one state change of an incident
type Event struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"` // STA, END, CHI, CLO, REO, ACK, OTH, LES
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	Incident    Incident  `json:"incident"`
}

// Destination is a delivery endpoint
type Destination struct {
	ID       int64           `json:"id"`
	UserID   int64           `json:"user_id"`
	Media    string          `json:"media"`
	Label    string          `json:"label,omitempty"`
	Settings json.RawMessage `json:"settings"`
}

// Filter is a named filter document
type Filter struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"user_id"`
	Name   string          `json:"name"`
	Filter json.RawMessage `json:"filter"`
}

// ResolveResponse lists the destinations an event resolves to
type ResolveResponse struct {
	EventID      int64         `json:"event_id"`
	Destinations []Destination `json:"destinations"`
}

// ValidateResponse holds both forms of a valid filter document
type ValidateResponse struct {
	Filter json.RawMessage `json:"filter"`
	Legacy string          `json:"legacy"`
}

// PreviewResponse lists the incidents a filter document selects
type PreviewResponse struct {
	Incidents []Incident `json:"incidents"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

// AcceptedResponse acknowledges ingested events
type AcceptedResponse struct {
	Accepted int             `json:"accepted"`
	Rejected []RejectedEvent `json:"rejected,omitempty"`
}

// RejectedEvent is a batch entry the server refused
type RejectedEvent struct {
	Index   int    `json:"index"`
	EventID int64  `json:"event_id"`
	Reason  string `json:"reason"`
}

// HealthResponse is the body of the liveness and readiness probes
type HealthResponse struct {
	Status   string   `json:"status"`
	Database string   `json:"database,omitempty"`
	Media    []string `json:"media,omitempty"`
}

// User owns filters, timeslots, destinations and profiles
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// envelope is the success wrapper around every response body
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// errorEnvelope is the wrapper around error responses
type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}
