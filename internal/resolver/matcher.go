package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
)

// Policy decides how event and incident checks combine for a profile
type Policy string

const (
	// IncidentAndEvent requires a filter to accept the event type and the
	// timeslot plus a filter to accept the owning incident
	IncidentAndEvent Policy = "incident_and_event"
	// EventOnly requires only a filter accepting the event type
	EventOnly Policy = "event_only"
)

// ParsePolicy returns the policy named s. The empty string selects IncidentAndEvent.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", IncidentAndEvent:
		return IncidentAndEvent, nil
	case EventOnly:
		return EventOnly, nil
	}
	return "", fmt.Errorf("unknown profile match policy %q", s)
}

// Matcher evaluates hydrated profiles against incidents and events
type Matcher struct {
	eval     *evaluator.Evaluator
	policy   Policy
	location *time.Location
}

// NewMatcher creates a matcher. Timeslots are evaluated in loc.
func NewMatcher(eval *evaluator.Evaluator, policy Policy, loc *time.Location) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	if policy == "" {
		policy = IncidentAndEvent
	}
	return &Matcher{eval: eval, policy: policy, location: loc}
}

// Policy returns the configured policy
func (m *Matcher) Policy() Policy {
	return m.policy
}

// IncidentFits is false for inactive profiles and when the timeslot does not
// cover the incident's start time. Otherwise any filter must accept the incident.
func (m *Matcher) IncidentFits(p *notification.Profile, inc *incident.Incident) bool {
	return p.Active && m.covers(p, inc) && anyFilter(p, func(f *filter.Filter) bool {
		return m.eval.IncidentFits(f.Criteria, inc)
	})
}

// EventFits is true when the profile is active and any non-empty filter
// accepts the event type
func (m *Matcher) EventFits(p *notification.Profile, e *incident.Event) bool {
	return p.Active && anyFilter(p, m.nonEmpty(func(f *filter.Filter) bool {
		return m.eval.EventFits(f.Criteria, e)
	}))
}

// Matches applies the policy
func (m *Matcher) Matches(p *notification.Profile, e *incident.Event) bool {
	return m.match(p, e,
		func(f *filter.Filter) bool { return m.eval.EventFits(f.Criteria, e) },
		func(f *filter.Filter) bool { return m.eval.IncidentFits(f.Criteria, &e.Incident) },
	)
}

func (m *Matcher) match(p *notification.Profile, e *incident.Event, eventFits, incidentFits func(*filter.Filter) bool) bool {
	if !p.Active || !anyFilter(p, m.nonEmpty(eventFits)) {
		return false
	}
	if m.policy == EventOnly {
		return true
	}
	return m.covers(p, &e.Incident) && anyFilter(p, incidentFits)
}

// nonEmpty makes an empty filter reject every event, so a profile never
// matches through an empty filter under either policy
func (m *Matcher) nonEmpty(fits func(*filter.Filter) bool) func(*filter.Filter) bool {
	return func(f *filter.Filter) bool {
		return !m.eval.IsEmpty(f.Criteria) && fits(f)
	}
}

func (m *Matcher) covers(p *notification.Profile, inc *incident.Incident) bool {
	return p.Timeslot != nil && p.Timeslot.Covers(inc.StartTime, m.location)
}

func anyFilter(p *notification.Profile, fits func(*filter.Filter) bool) bool {
	for _, f := range p.Filters {
		if fits(f) {
			return true
		}
	}
	return false
}

// memo caches filter verdicts for the duration of one resolution pass.
// Incidents are keyed by their full snapshot since events in one batch may
// carry the same incident in different states.
type memo struct {
	eval      *evaluator.Evaluator
	incidents map[incidentVerdict]bool
	events    map[eventVerdict]bool
}

type snapshot struct {
	id       int64
	level    int
	open     bool
	acked    bool
	stateful bool
	source   int64
	start    int64
	tags     string
}

type incidentVerdict struct {
	filter   *filter.Filter
	incident snapshot
}

type eventVerdict struct {
	filter    *filter.Filter
	eventType incident.EventType
}

func newMemo(eval *evaluator.Evaluator) *memo {
	return &memo{
		eval:      eval,
		incidents: make(map[incidentVerdict]bool),
		events:    make(map[eventVerdict]bool),
	}
}

func snapshotOf(inc *incident.Incident) snapshot {
	return snapshot{
		id:       inc.ID,
		level:    inc.Level,
		open:     inc.Open,
		acked:    inc.Acked,
		stateful: inc.Stateful,
		source:   inc.SourceID,
		start:    inc.StartTime.UnixNano(),
		tags:     strings.Join(inc.Tags, "\x00"),
	}
}

// matches is Matcher.Matches with cached filter verdicts
func (c *memo) matches(m *Matcher, p *notification.Profile, e *incident.Event, snap snapshot) bool {
	return m.match(p, e,
		func(f *filter.Filter) bool {
			key := eventVerdict{filter: f, eventType: e.Type}
			v, ok := c.events[key]
			if !ok {
				v = c.eval.EventFits(f.Criteria, e)
				c.events[key] = v
			}
			return v
		},
		func(f *filter.Filter) bool {
			key := incidentVerdict{filter: f, incident: snap}
			v, ok := c.incidents[key]
			if !ok {
				v = c.eval.IncidentFits(f.Criteria, &e.Incident)
				c.incidents[key] = v
			}
			return v
		},
	)
}
