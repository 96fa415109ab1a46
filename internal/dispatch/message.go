package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
)

// Render builds the message delivered to every medium for an event
func Render(e *incident.Event, prefix string) *notification.Message {
	inc := &e.Incident

	description := inc.Description
	if description == "" {
		description = e.Description
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s: %s\n", e.Type.DisplayName(), description)
	if e.Description != "" && e.Description != description {
		fmt.Fprintf(&body, "Event: %s\n", e.Description)
	}
	fmt.Fprintf(&body, "Incident: #%d\n", inc.ID)
	fmt.Fprintf(&body, "Level: %d\n", inc.Level)
	fmt.Fprintf(&body, "Started: %s\n", inc.StartTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&body, "Status: %s\n", status(inc))
	if len(inc.Tags) > 0 {
		fmt.Fprintf(&body, "Tags: %s\n", strings.Join(inc.Tags, ", "))
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return &notification.Message{
		EventID:    e.ID,
		IncidentID: inc.ID,
		EventType:  string(e.Type),
		Level:      inc.Level,
		Subject:    fmt.Sprintf("%s[%s] Incident #%d: %s", prefix, e.Type.DisplayName(), inc.ID, description),
		Body:       body.String(),
		Timestamp:  ts,
	}
}

func status(inc *incident.Incident) string {
	var parts []string
	switch {
	case !inc.Stateful:
		parts = append(parts, "stateless")
	case inc.Open:
		parts = append(parts, "open")
	default:
		parts = append(parts, "closed")
	}
	if inc.Acked {
		parts = append(parts, "acknowledged")
	}
	return strings.Join(parts, ", ")
}
