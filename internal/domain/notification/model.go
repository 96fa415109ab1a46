package notification

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
)

// Medium is the closed set of delivery media this service knows about.
// A slug outside this set is an unregistered medium.
type Medium string

const (
	MediumEmail   Medium = "email"
	MediumSMS     Medium = "sms"
	MediumSlack   Medium = "slack"
	MediumWebhook Medium = "webhook"
)

// AllMedia lists every known medium
var AllMedia = []Medium{MediumEmail, MediumSMS, MediumSlack, MediumWebhook}

var mediumNames = map[Medium]string{
	MediumEmail:   "Email",
	MediumSMS:     "SMS",
	MediumSlack:   "Slack",
	MediumWebhook: "Webhook",
}

// ParseMedium returns the medium for slug and false when the slug is unregistered
func ParseMedium(slug string) (Medium, bool) {
	m := Medium(slug)
	_, ok := mediumNames[m]
	return m, ok
}

// IsValid checks if the medium is one of the known media
func (m Medium) IsValid() bool {
	_, ok := mediumNames[m]
	return ok
}

// DisplayName returns the human readable medium name
func (m Medium) DisplayName() string {
	if name, ok := mediumNames[m]; ok {
		return name
	}
	return string(m)
}

// Media is the stored record of a medium. Installed is flipped to false when
// resolution meets a destination whose medium has no registered sender.
type Media struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
}

// Destination is a user-owned delivery endpoint
type Destination struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Medium    Medium          `json:"media"`
	Label     string          `json:"label,omitempty"`
	Settings  json.RawMessage `json:"settings"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EmailSettings holds the settings of an email destination
type EmailSettings struct {
	EmailAddress string `json:"email_address" validate:"required,email"`
	Synced       bool   `json:"synced,omitempty"`
}

// SMSSettings holds the settings of an SMS destination
type SMSSettings struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

// SlackSettings holds the settings of a Slack destination
type SlackSettings struct {
	WebhookURL string `json:"webhook_url" validate:"required,url"`
	Channel    string `json:"channel,omitempty"`
	Username   string `json:"username,omitempty"`
}

// WebhookSettings holds the settings of a generic webhook destination
type WebhookSettings struct {
	URL    string `json:"url" validate:"required,url"`
	Secret string `json:"secret,omitempty"`
}

// Synced reports whether the destination was created from an outside
// identity source and is therefore read-only
func (d *Destination) Synced() bool {
	if d.Medium != MediumEmail {
		return false
	}
	var s EmailSettings
	if err := json.Unmarshal(d.Settings, &s); err != nil {
		return false
	}
	return s.Synced
}

// Key returns the medium specific address of the destination. Two
// destinations of one user and medium with the same key are duplicates.
func (d *Destination) Key() string {
	switch d.Medium {
	case MediumEmail:
		var s EmailSettings
		if json.Unmarshal(d.Settings, &s) == nil {
			return strings.ToLower(s.EmailAddress)
		}
	case MediumSMS:
		var s SMSSettings
		if json.Unmarshal(d.Settings, &s) == nil {
			return s.PhoneNumber
		}
	case MediumSlack:
		var s SlackSettings
		if json.Unmarshal(d.Settings, &s) == nil {
			return s.WebhookURL + "#" + s.Channel
		}
	case MediumWebhook:
		var s WebhookSettings
		if json.Unmarshal(d.Settings, &s) == nil {
			return s.URL
		}
	}
	return string(d.Settings)
}

// Profile binds a timeslot, filters and destinations for one user.
// Timeslot, Filters and Destinations are hydrated by the repository.
type Profile struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	Name           string             `json:"name,omitempty" validate:"max=40"`
	TimeslotID     int64              `json:"timeslot" validate:"required"`
	FilterIDs      []int64            `json:"filters"`
	DestinationIDs []int64            `json:"destinations"`
	Active         bool               `json:"active"`
	Timeslot       *timeslot.Timeslot `json:"-"`
	Filters        []*filter.Filter   `json:"-"`
	Destinations   []*Destination     `json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// DeliveryStatus represents the status of a delivery attempt
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "pending"
	DeliveryStatusSent     DeliveryStatus = "sent"
	DeliveryStatusFailed   DeliveryStatus = "failed"
	DeliveryStatusRetrying DeliveryStatus = "retrying"
	DeliveryStatusSkipped  DeliveryStatus = "skipped"
)

// MaxRetries is the number of redelivery attempts before a delivery stays failed
const MaxRetries = 3

// Delivery records one attempt to notify one destination about one event
type Delivery struct {
	ID            string          `json:"id"`
	EventID       int64           `json:"event_id"`
	DestinationID int64           `json:"destination_id"`
	Medium        Medium          `json:"medium"`
	Status        DeliveryStatus  `json:"status"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	RetryCount    int             `json:"retry_count"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Message is the rendered content delivered to every medium
type Message struct {
	EventID    int64     `json:"event_id"`
	IncidentID int64     `json:"incident_id"`
	EventType  string    `json:"event_type"`
	Level      int       `json:"level"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Timestamp  time.Time `json:"timestamp"`
}
