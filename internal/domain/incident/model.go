package incident

import (
	"fmt"
	"strings"
	"time"
)

// Severity levels. Level 1 is the most severe.
const (
	MinLevel = 1
	MaxLevel = 5
)

// EventType identifies the kind of state change an event records
type EventType string

const (
	EventIncidentStart  EventType = "STA"
	EventIncidentEnd    EventType = "END"
	EventIncidentChange EventType = "CHI"
	EventClose          EventType = "CLO"
	EventReopen         EventType = "REO"
	EventAcknowledge    EventType = "ACK"
	EventOther          EventType = "OTH"
	EventStateless      EventType = "LES"
)

// AllEventTypes lists every known event type in display order
var AllEventTypes = []EventType{
	EventIncidentStart,
	EventIncidentEnd,
	EventIncidentChange,
	EventClose,
	EventReopen,
	EventAcknowledge,
	EventOther,
	EventStateless,
}

var eventTypeNames = map[EventType]string{
	EventIncidentStart:  "Incident start",
	EventIncidentEnd:    "Incident end",
	EventIncidentChange: "Incident change",
	EventClose:          "Close",
	EventReopen:         "Reopen",
	EventAcknowledge:    "Acknowledge",
	EventOther:          "Other",
	EventStateless:      "Stateless",
}

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	_, ok := eventTypeNames[t]
	return ok
}

// DisplayName returns the human readable name of the event type
func (t EventType) DisplayName() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// ParseEventType accepts either the three letter code or the display name
func ParseEventType(s string) (EventType, error) {
	code := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if code.Valid() {
		return code, nil
	}
	for t, name := range eventTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Incident is the read-only view of an incident used for routing decisions
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

// HasTag reports whether the incident carries the key=value tag
func (i *Incident) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Event is a single persisted state change of an incident
type Event struct {
	ID          int64     `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
	Incident    Incident  `json:"incident"`
}

// SplitTag splits a key=value tag on the first '='
func SplitTag(tag string) (key, value string, ok bool) {
	idx := strings.Index(tag, "=")
	if idx <= 0 || idx == len(tag)-1 {
		return "", "", false
	}
	return tag[:idx], tag[idx+1:], true
}
