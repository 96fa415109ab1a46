// Package evaluator applies filter criteria to incidents and events.
//
// Every criterion is evaluated in two forms that must agree: IncidentFits
// tests one incident in memory, Compile builds a storage predicate that
// narrows a whole collection. Both start from Resolve, which fills in
// criteria the document leaves unset from the site-wide fallback.
package evaluator

import (
	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

// Evaluator holds the fallback criteria. It is read-only after construction
// and safe for concurrent use.
type Evaluator struct {
	fallback filter.Criteria
}

// New creates an evaluator with the given fallback
func New(fallback filter.Criteria) *Evaluator {
	return &Evaluator{fallback: fallback}
}

// NoFallback creates an evaluator in which unset criteria stay ignored
func NoFallback() *Evaluator {
	return &Evaluator{}
}

// Fallback returns the configured fallback criteria
func (e *Evaluator) Fallback() filter.Criteria {
	return e.fallback
}

// Resolve substitutes the fallback for every criterion c leaves unset.
// A criterion c sets, even to false, is kept.
func (e *Evaluator) Resolve(c filter.Criteria) filter.Criteria {
	r := c
	if len(r.SourceSystemIDs) == 0 {
		r.SourceSystemIDs = e.fallback.SourceSystemIDs
	}
	if len(r.Tags) == 0 {
		r.Tags = e.fallback.Tags
	}
	if r.Open == nil {
		r.Open = e.fallback.Open
	}
	if r.Acked == nil {
		r.Acked = e.fallback.Acked
	}
	if r.Stateful == nil {
		r.Stateful = e.fallback.Stateful
	}
	if r.MaxLevel == nil {
		r.MaxLevel = e.fallback.MaxLevel
	}
	if len(r.EventTypes) == 0 {
		r.EventTypes = e.fallback.EventTypes
	}
	return r
}

// IsEmpty reports whether every criterion is ignored after fallback
func (e *Evaluator) IsEmpty(c filter.Criteria) bool {
	return isEmpty(e.Resolve(c))
}

func isEmpty(r filter.Criteria) bool {
	return len(r.SourceSystemIDs) == 0 &&
		len(r.Tags) == 0 &&
		r.Open == nil &&
		r.Acked == nil &&
		r.Stateful == nil &&
		r.MaxLevel == nil &&
		len(r.EventTypes) == 0
}

// IncidentFits reports whether the incident satisfies every set criterion.
// An empty filter matches nothing.
func (e *Evaluator) IncidentFits(c filter.Criteria, inc *incident.Incident) bool {
	r := e.Resolve(c)
	if isEmpty(r) {
		return false
	}

	if len(r.SourceSystemIDs) > 0 {
		found := false
		for _, id := range r.SourceSystemIDs {
			if id == inc.SourceID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, tag := range r.Tags {
		if !inc.HasTag(tag) {
			return false
		}
	}

	if r.Open != nil && *r.Open != inc.Open {
		return false
	}
	if r.Acked != nil && *r.Acked != inc.Acked {
		return false
	}
	if r.Stateful != nil && *r.Stateful != inc.Stateful {
		return false
	}

	if r.MaxLevel != nil && inc.Level > *r.MaxLevel {
		return false
	}

	return true
}

// EventFits checks only the event type criterion. With no event types set
// every event fits.
func (e *Evaluator) EventFits(c filter.Criteria, ev *incident.Event) bool {
	r := e.Resolve(c)
	if len(r.EventTypes) == 0 {
		return true
	}
	for _, t := range r.EventTypes {
		if t == ev.Type {
			return true
		}
	}
	return false
}

// Compile builds the collection form of the criteria
func (e *Evaluator) Compile(c filter.Criteria) incident.Predicate {
	r := e.Resolve(c)
	if isEmpty(r) {
		return incident.Nothing()
	}

	var terms []incident.Predicate
	if len(r.SourceSystemIDs) > 0 {
		terms = append(terms, incident.SourceIn{IDs: r.SourceSystemIDs})
	}
	if len(r.Tags) > 0 {
		terms = append(terms, incident.TagsAll{Tags: r.Tags})
	}
	for _, tri := range []struct {
		flag  incident.Flag
		value *bool
	}{
		{incident.FlagOpen, r.Open},
		{incident.FlagAcked, r.Acked},
		{incident.FlagStateful, r.Stateful},
	} {
		if tri.value != nil {
			terms = append(terms, incident.FlagEquals{Flag: tri.flag, Value: *tri.value})
		}
	}
	if r.MaxLevel != nil {
		terms = append(terms, incident.LevelAtMost{Max: *r.MaxLevel})
	}
	return incident.All(terms...)
}

// CompileAny builds the disjunction of several filters, as used by a
// profile. No filters compile to a predicate matching nothing.
func (e *Evaluator) CompileAny(cs ...filter.Criteria) incident.Predicate {
	terms := make([]incident.Predicate, 0, len(cs))
	for _, c := range cs {
		terms = append(terms, e.Compile(c))
	}
	return incident.Any(terms...)
}

// Preview narrows an in-memory collection with the collection form
func (e *Evaluator) Preview(c filter.Criteria, incidents []*incident.Incident) []*incident.Incident {
	p := e.Compile(c)
	var out []*incident.Incident
	for _, inc := range incidents {
		if p.Matches(inc) {
			out = append(out, inc)
		}
	}
	return out
}
