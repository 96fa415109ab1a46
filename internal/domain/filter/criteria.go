package filter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

// Criteria is the typed form of a filter document. Nil pointers and empty
// slices mean the criterion is not set.
type Criteria struct {
	SourceSystemIDs []int64              `json:"sourceSystemIds,omitempty" validate:"omitempty,dive,gte=1"`
	Tags            []string             `json:"tags,omitempty" validate:"omitempty,dive,min=3,keyvalue"`
	Open            *bool                `json:"open,omitempty"`
	Acked           *bool                `json:"acked,omitempty"`
	Stateful        *bool                `json:"stateful,omitempty"`
	MaxLevel        *int                 `json:"maxlevel,omitempty" validate:"omitempty,gte=1,lte=5"`
	EventTypes      []incident.EventType `json:"event_types,omitempty" validate:"omitempty,dive,eventtype"`
}

// document mirrors Criteria for decoding; eventTypes is an accepted alias
type document struct {
	SourceSystemIDs []int64              `json:"sourceSystemIds"`
	Tags            []string             `json:"tags"`
	Open            *bool                `json:"open"`
	Acked           *bool                `json:"acked"`
	Stateful        *bool                `json:"stateful"`
	MaxLevel        *int                 `json:"maxlevel"`
	EventTypes      []incident.EventType `json:"event_types"`
	EventTypesAlias []incident.EventType `json:"eventTypes"`
}

// ParseCriteria decodes either the native object form or the legacy form,
// a JSON string holding the object.
func ParseCriteria(data []byte) (Criteria, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Criteria{}, nil
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Criteria{}, fmt.Errorf("invalid legacy filter string: %w", err)
		}
		return ParseLegacy(inner)
	}

	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Criteria{}, fmt.Errorf("invalid filter document: %w", err)
	}

	eventTypes := doc.EventTypes
	if len(eventTypes) == 0 {
		eventTypes = doc.EventTypesAlias
	}
	return Criteria{
		SourceSystemIDs: uniqueInts(doc.SourceSystemIDs),
		Tags:            uniqueStrings(doc.Tags),
		Open:            doc.Open,
		Acked:           doc.Acked,
		Stateful:        doc.Stateful,
		MaxLevel:        doc.MaxLevel,
		EventTypes:      uniqueEventTypes(eventTypes),
	}, nil
}

// ParseLegacy decodes the stringified representation of a filter
func ParseLegacy(s string) (Criteria, error) {
	if s == "" {
		return Criteria{}, nil
	}
	b := []byte(s)
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		return Criteria{}, fmt.Errorf("legacy filter string is nested more than once")
	}
	return ParseCriteria(b)
}

// Legacy returns the stringified representation of the criteria
func (c Criteria) Legacy() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// UnmarshalJSON accepts both representations
func (c *Criteria) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCriteria(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalJSON always writes the native object form
func (c Criteria) MarshalJSON() ([]byte, error) {
	type plain Criteria
	return json.Marshal(plain(c))
}

// Bool returns a pointer to v for building tri-state criteria
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

func uniqueInts(in []int64) []int64 {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func uniqueEventTypes(in []incident.EventType) []incident.EventType {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[incident.EventType]bool, len(in))
	out := make([]incident.EventType, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
