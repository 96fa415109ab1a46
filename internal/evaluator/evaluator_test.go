package evaluator

import (
	"math/rand"
	"testing"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/testutil"
)

func TestEvaluator_IncidentFits(t *testing.T) {
	eval := NoFallback()

	tests := []struct {
		name     string
		criteria filter.Criteria
		incident incident.Incident
		want     bool
	}{
		{
			name:     "source system matches",
			criteria: filter.Criteria{SourceSystemIDs: []int64{7}},
			incident: incident.Incident{SourceID: 7, Level: 3},
			want:     true,
		},
		{
			name:     "source system differs",
			criteria: filter.Criteria{SourceSystemIDs: []int64{7}},
			incident: incident.Incident{SourceID: 8, Level: 3},
			want:     false,
		},
		{
			name:     "required tag present among others",
			criteria: filter.Criteria{Tags: []string{"env=prod"}},
			incident: incident.Incident{Tags: []string{"env=prod", "region=eu"}},
			want:     true,
		},
		{
			name:     "required tag missing",
			criteria: filter.Criteria{Tags: []string{"env=prod"}},
			incident: incident.Incident{Tags: []string{"env=staging"}},
			want:     false,
		},
		{
			name:     "all tags required",
			criteria: filter.Criteria{Tags: []string{"env=prod", "region=us"}},
			incident: incident.Incident{Tags: []string{"env=prod", "region=eu"}},
			want:     false,
		},
		{
			name:     "maxlevel equal",
			criteria: filter.Criteria{MaxLevel: filter.Int(2)},
			incident: incident.Incident{Level: 2},
			want:     true,
		},
		{
			name:     "maxlevel exceeded",
			criteria: filter.Criteria{MaxLevel: filter.Int(2)},
			incident: incident.Incident{Level: 3},
			want:     false,
		},
		{
			name:     "acked false requires unacked",
			criteria: filter.Criteria{Acked: filter.Bool(false)},
			incident: incident.Incident{Acked: true},
			want:     false,
		},
		{
			name:     "open true requires open",
			criteria: filter.Criteria{Open: filter.Bool(true)},
			incident: incident.Incident{Open: true, Stateful: true},
			want:     true,
		},
		{
			name:     "stateful false matches stateless",
			criteria: filter.Criteria{Stateful: filter.Bool(false)},
			incident: incident.Incident{},
			want:     true,
		},
		{
			name:     "criteria are combined with AND",
			criteria: filter.Criteria{SourceSystemIDs: []int64{1}, MaxLevel: filter.Int(2)},
			incident: incident.Incident{SourceID: 1, Level: 4},
			want:     false,
		},
		{
			name:     "event types only matches every incident",
			criteria: filter.Criteria{EventTypes: []incident.EventType{incident.EventAcknowledge}},
			incident: incident.Incident{SourceID: 99, Level: 5},
			want:     true,
		},
		{
			name:     "empty filter matches nothing",
			criteria: filter.Criteria{},
			incident: incident.Incident{SourceID: 1, Level: 1},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := tt.incident
			if got := eval.IncidentFits(tt.criteria, &inc); got != tt.want {
				t.Errorf("IncidentFits() = %v, want %v", got, tt.want)
			}
			if got := eval.Compile(tt.criteria).Matches(&inc); got != tt.want {
				t.Errorf("Compile().Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluator_EventFits(t *testing.T) {
	ack := &incident.Event{Type: incident.EventAcknowledge}
	start := &incident.Event{Type: incident.EventIncidentStart}

	tests := []struct {
		name     string
		fallback filter.Criteria
		criteria filter.Criteria
		event    *incident.Event
		want     bool
	}{
		{"no event types accepts everything", filter.Criteria{}, filter.Criteria{}, ack, true},
		{"listed type", filter.Criteria{}, filter.Criteria{EventTypes: []incident.EventType{incident.EventAcknowledge}}, ack, true},
		{"unlisted type", filter.Criteria{}, filter.Criteria{EventTypes: []incident.EventType{incident.EventAcknowledge}}, start, false},
		{"fallback types apply when unset", filter.Criteria{EventTypes: []incident.EventType{incident.EventIncidentStart}}, filter.Criteria{}, ack, false},
		{"document types win over fallback", filter.Criteria{EventTypes: []incident.EventType{incident.EventIncidentStart}}, filter.Criteria{EventTypes: []incident.EventType{incident.EventAcknowledge}}, ack, true},
		{"incident criteria are not consulted", filter.Criteria{}, filter.Criteria{SourceSystemIDs: []int64{1}}, &incident.Event{Type: incident.EventClose, Incident: incident.Incident{SourceID: 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.fallback).EventFits(tt.criteria, tt.event); got != tt.want {
				t.Errorf("EventFits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluator_IsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		fallback filter.Criteria
		criteria filter.Criteria
		want     bool
	}{
		{"nothing set", filter.Criteria{}, filter.Criteria{}, true},
		{"explicit false is set", filter.Criteria{}, filter.Criteria{Acked: filter.Bool(false)}, false},
		{"empty lists are unset", filter.Criteria{}, filter.Criteria{Tags: []string{}, SourceSystemIDs: []int64{}}, true},
		{"fallback fills an empty document", filter.Criteria{MaxLevel: filter.Int(3)}, filter.Criteria{}, false},
		{"event types count", filter.Criteria{}, filter.Criteria{EventTypes: []incident.EventType{incident.EventOther}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.fallback).IsEmpty(tt.criteria); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluator_FallbackNeverOverrides(t *testing.T) {
	criteria := filter.Criteria{
		Acked:    filter.Bool(false),
		MaxLevel: filter.Int(4),
		Tags:     []string{"env=prod"},
	}
	inc := &incident.Incident{Acked: false, Level: 4, Tags: []string{"env=prod"}}

	fallbacks := []filter.Criteria{
		{},
		{Acked: filter.Bool(true)},
		{MaxLevel: filter.Int(1)},
		{Tags: []string{"env=staging"}},
		{Acked: filter.Bool(true), MaxLevel: filter.Int(1), Tags: []string{"team=db"}},
	}

	for i, fb := range fallbacks {
		eval := New(fb)
		if !eval.IncidentFits(criteria, inc) {
			t.Errorf("fallback %d changed the verdict of explicitly set criteria", i)
		}
	}
}

func TestEvaluator_FallbackFillsPerCriterion(t *testing.T) {
	eval := New(filter.Criteria{Open: filter.Bool(true), MaxLevel: filter.Int(2)})

	criteria := filter.Criteria{MaxLevel: filter.Int(5)}
	closed := &incident.Incident{Open: false, Level: 4}
	open := &incident.Incident{Open: true, Stateful: true, Level: 4}

	if eval.IncidentFits(criteria, closed) {
		t.Error("IncidentFits() = true for closed incident, want fallback open=true to apply")
	}
	if !eval.IncidentFits(criteria, open) {
		t.Error("IncidentFits() = false, want document maxlevel 5 to replace fallback maxlevel 2")
	}
}

func TestEvaluator_IgnoredCriterionIndependence(t *testing.T) {
	eval := NoFallback()
	criteria := filter.Criteria{SourceSystemIDs: []int64{3}}
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		base := testutil.RandomIncident(rng, int64(i))
		want := eval.IncidentFits(criteria, base)

		flipped := *base
		flipped.Open = !flipped.Open
		flipped.Acked = !flipped.Acked
		flipped.Stateful = !flipped.Stateful
		flipped.Level = rng.Intn(5) + 1
		flipped.Tags = []string{"x=y"}

		if got := eval.IncidentFits(criteria, &flipped); got != want {
			t.Fatalf("incident %d: changing ignored attributes changed verdict from %v to %v", i, want, got)
		}
	}
}

func TestEvaluator_EmptyFilterMatchesNoIncident(t *testing.T) {
	eval := NoFallback()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		inc := testutil.RandomIncident(rng, int64(i))
		if eval.IncidentFits(filter.Criteria{}, inc) {
			t.Fatalf("empty filter matched incident %+v", inc)
		}
	}
	if got := eval.Preview(filter.Criteria{}, []*incident.Incident{testutil.RandomIncident(rng, 1)}); len(got) != 0 {
		t.Errorf("Preview() of empty filter returned %d incidents", len(got))
	}
}

func TestEvaluator_PredicateAndCollectionAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	incidents := make([]*incident.Incident, 300)
	for i := range incidents {
		incidents[i] = testutil.RandomIncident(rng, int64(i+1))
	}

	for round := 0; round < 500; round++ {
		eval := New(testutil.RandomCriteria(rng))
		criteria := testutil.RandomCriteria(rng)

		want := map[int64]bool{}
		for _, inc := range incidents {
			if eval.IncidentFits(criteria, inc) {
				want[inc.ID] = true
			}
		}

		got := eval.Preview(criteria, incidents)
		if len(got) != len(want) {
			t.Fatalf("round %d: collection form selected %d incidents, predicate form %d (criteria %s, fallback %s)",
				round, len(got), len(want), criteria.Legacy(), eval.Fallback().Legacy())
		}
		for _, inc := range got {
			if !want[inc.ID] {
				t.Fatalf("round %d: incident %d selected only by the collection form", round, inc.ID)
			}
		}
	}
}

func TestEvaluator_CompileAny(t *testing.T) {
	eval := NoFallback()
	p := eval.CompileAny(
		filter.Criteria{SourceSystemIDs: []int64{1}},
		filter.Criteria{SourceSystemIDs: []int64{2}},
	)

	for id, want := range map[int64]bool{1: true, 2: true, 3: false} {
		if got := p.Matches(&incident.Incident{SourceID: id}); got != want {
			t.Errorf("CompileAny().Matches(source %d) = %v, want %v", id, got, want)
		}
	}
	if eval.CompileAny().Matches(&incident.Incident{SourceID: 1}) {
		t.Error("CompileAny() with no filters matched an incident")
	}
}
