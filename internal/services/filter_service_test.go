package services

import (
	"context"
	"testing"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/testutil"
)

type filterFixture struct {
	repo      *testutil.MockFilterRepository
	profiles  *testutil.MockProfileRepository
	incidents *testutil.MockIncidentRepository
	service   filter.Service
}

func newFilterFixture(eval *evaluator.Evaluator) *filterFixture {
	repo := testutil.NewMockFilterRepository()
	profiles := testutil.NewMockProfileRepository(testutil.NewMockTimeslotRepository(), repo, testutil.NewMockDestinationRepository())
	incidents := testutil.NewMockIncidentRepository()
	return &filterFixture{
		repo:      repo,
		profiles:  profiles,
		incidents: incidents,
		service:   NewFilterService(repo, profiles, incidents, eval, testLogger()),
	}
}

func TestFilterService_Create(t *testing.T) {
	tests := []struct {
		name     string
		filter   filter.Filter
		wantCode string
	}{
		{
			name:   "valid",
			filter: filter.Filter{Name: "critical", Criteria: filter.Criteria{MaxLevel: filter.Int(2)}},
		},
		{
			name:     "missing name",
			filter:   filter.Filter{Criteria: filter.Criteria{Open: filter.Bool(true)}},
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "level out of range",
			filter:   filter.Filter{Name: "bad", Criteria: filter.Criteria{MaxLevel: filter.Int(7)}},
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "malformed tag",
			filter:   filter.Filter{Name: "bad", Criteria: filter.Criteria{Tags: []string{"nokey"}}},
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "unknown event type",
			filter:   filter.Filter{Name: "bad", Criteria: filter.Criteria{EventTypes: []incident.EventType{"XXX"}}},
			wantCode: errors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFilterFixture(evaluator.NoFallback())
			f := tt.filter
			f.UserID = 1
			err := fx.service.Create(context.Background(), &f)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				return
			}
			if !errors.HasCode(err, tt.wantCode) {
				t.Errorf("Create() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestFilterService_DeleteInUse(t *testing.T) {
	ctx := context.Background()
	fx := newFilterFixture(evaluator.NoFallback())

	f := &filter.Filter{UserID: 1, Name: "used"}
	if err := fx.service.Create(ctx, f); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = fx.profiles.Create(ctx, &notification.Profile{UserID: 1, Name: "on call", TimeslotID: 1, FilterIDs: []int64{f.ID}})

	err := fx.service.Delete(ctx, 1, f.ID)
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	fx.profiles.Profiles[1].FilterIDs = nil
	if err := fx.service.Delete(ctx, 1, f.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestFilterService_Preview(t *testing.T) {
	ctx := context.Background()
	fallback := filter.Criteria{MaxLevel: filter.Int(3)}
	fx := newFilterFixture(evaluator.New(fallback))

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for _, inc := range []*incident.Incident{
		{ID: 1, Level: 1, Open: true, Stateful: true, SourceID: 1, StartTime: start},
		{ID: 2, Level: 4, Open: true, Stateful: true, SourceID: 1, StartTime: start},
		{ID: 3, Level: 2, Open: false, Stateful: true, SourceID: 2, StartTime: start},
	} {
		_ = fx.incidents.Upsert(ctx, inc)
	}

	tests := []struct {
		name     string
		criteria filter.Criteria
		want     []int64
	}{
		{name: "fallback level applies", criteria: filter.Criteria{SourceSystemIDs: []int64{1}}, want: []int64{1}},
		{name: "explicit level overrides", criteria: filter.Criteria{SourceSystemIDs: []int64{1}, MaxLevel: filter.Int(5)}, want: []int64{1, 2}},
		{name: "open only", criteria: filter.Criteria{Open: filter.Bool(false)}, want: []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fx.service.Preview(ctx, tt.criteria, 0, 0)
			if err != nil {
				t.Fatalf("Preview() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Preview() returned %d incidents, want %d", len(got), len(tt.want))
			}
			for i, inc := range got {
				if inc.ID != tt.want[i] {
					t.Errorf("Preview()[%d] = %d, want %d", i, inc.ID, tt.want[i])
				}
			}
		})
	}

	if _, err := fx.service.Preview(ctx, filter.Criteria{MaxLevel: filter.Int(0)}, 0, 0); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestFilterService_Incidents(t *testing.T) {
	ctx := context.Background()
	fx := newFilterFixture(evaluator.NoFallback())

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for _, inc := range []*incident.Incident{
		{ID: 1, Level: 1, Open: true, Stateful: true, SourceID: 1, StartTime: start},
		{ID: 2, Level: 4, Open: true, Stateful: true, SourceID: 1, StartTime: start},
		{ID: 3, Level: 2, Open: false, Stateful: true, SourceID: 2, StartTime: start},
	} {
		_ = fx.incidents.Upsert(ctx, inc)
	}

	f := &filter.Filter{UserID: 1, Name: "severe", Criteria: filter.Criteria{MaxLevel: filter.Int(2)}}
	if err := fx.service.Create(ctx, f); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := fx.service.Incidents(ctx, 1, f.ID, 0, 0)
	if err != nil {
		t.Fatalf("Incidents() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("expected incidents 1 and 3, got %+v", got)
	}

	if _, err := fx.service.Incidents(ctx, 2, f.ID, 0, 0); !errors.IsNotFound(err) {
		t.Errorf("expected other users not to see the filter, got %v", err)
	}
}
