package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/testutil"
)

func TestProfileService_Ownership(t *testing.T) {
	ctx := context.Background()
	timeslots := testutil.NewMockTimeslotRepository()
	filters := testutil.NewMockFilterRepository()
	destinations := testutil.NewMockDestinationRepository()
	profiles := testutil.NewMockProfileRepository(timeslots, filters, destinations)
	service := NewProfileService(profiles, timeslots, filters, destinations, testutil.NewMockIncidentRepository(), evaluator.NoFallback(), testLogger())

	mine := timeslot.AllTheTime(1)
	theirs := timeslot.AllTheTime(2)
	_ = timeslots.Create(ctx, mine)
	_ = timeslots.Create(ctx, theirs)

	myFilter := &filter.Filter{UserID: 1, Name: "mine"}
	theirFilter := &filter.Filter{UserID: 2, Name: "theirs"}
	_ = filters.Create(ctx, myFilter)
	_ = filters.Create(ctx, theirFilter)

	myDest := &notification.Destination{UserID: 1, Medium: notification.MediumEmail, Settings: json.RawMessage(`{"email_address":"a@example.com"}`)}
	theirDest := &notification.Destination{UserID: 2, Medium: notification.MediumEmail, Settings: json.RawMessage(`{"email_address":"b@example.com"}`)}
	_ = destinations.Create(ctx, myDest)
	_ = destinations.Create(ctx, theirDest)

	tests := []struct {
		name     string
		profile  notification.Profile
		wantCode string
	}{
		{
			name:    "all owned",
			profile: notification.Profile{TimeslotID: mine.ID, FilterIDs: []int64{myFilter.ID}, DestinationIDs: []int64{myDest.ID}},
		},
		{
			name:     "foreign timeslot",
			profile:  notification.Profile{TimeslotID: theirs.ID, FilterIDs: []int64{myFilter.ID}},
			wantCode: errors.ErrCodeOwnership,
		},
		{
			name:     "foreign filter",
			profile:  notification.Profile{TimeslotID: mine.ID, FilterIDs: []int64{myFilter.ID, theirFilter.ID}},
			wantCode: errors.ErrCodeOwnership,
		},
		{
			name:     "foreign destination",
			profile:  notification.Profile{TimeslotID: mine.ID, DestinationIDs: []int64{theirDest.ID}},
			wantCode: errors.ErrCodeOwnership,
		},
		{
			name:     "unknown filter",
			profile:  notification.Profile{TimeslotID: mine.ID, FilterIDs: []int64{99}},
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "missing timeslot",
			profile:  notification.Profile{FilterIDs: []int64{myFilter.ID}},
			wantCode: errors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			p.UserID = 1
			err := service.Create(ctx, &p)

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				return
			}
			if !errors.HasCode(err, tt.wantCode) {
				t.Errorf("Create() error = %v, want code %s", err, tt.wantCode)
			}
			if tt.wantCode == errors.ErrCodeOwnership && errors.As(err).StatusCode != 403 {
				t.Errorf("expected status 403, got %d", errors.As(err).StatusCode)
			}
		})
	}
}

func TestProfileService_UpdateDeduplicatesLinks(t *testing.T) {
	ctx := context.Background()
	timeslots := testutil.NewMockTimeslotRepository()
	filters := testutil.NewMockFilterRepository()
	destinations := testutil.NewMockDestinationRepository()
	profiles := testutil.NewMockProfileRepository(timeslots, filters, destinations)
	service := NewProfileService(profiles, timeslots, filters, destinations, testutil.NewMockIncidentRepository(), evaluator.NoFallback(), testLogger())

	ts := timeslot.AllTheTime(1)
	_ = timeslots.Create(ctx, ts)
	f := &filter.Filter{UserID: 1, Name: "all"}
	_ = filters.Create(ctx, f)

	p := &notification.Profile{UserID: 1, TimeslotID: ts.ID, FilterIDs: []int64{f.ID}, Active: true}
	if err := service.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p.FilterIDs = []int64{f.ID, f.ID}
	p.Active = false
	if err := service.Update(ctx, p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := service.Get(ctx, 1, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.FilterIDs) != 1 || got.Active {
		t.Errorf("unexpected profile after update: %+v", got)
	}

	if _, err := service.Get(ctx, 2, p.ID); !errors.IsNotFound(err) {
		t.Errorf("expected other users not to see the profile, got %v", err)
	}
}

func TestProfileService_Incidents(t *testing.T) {
	ctx := context.Background()
	timeslots := testutil.NewMockTimeslotRepository()
	filters := testutil.NewMockFilterRepository()
	destinations := testutil.NewMockDestinationRepository()
	profiles := testutil.NewMockProfileRepository(timeslots, filters, destinations)
	incidents := testutil.NewMockIncidentRepository()
	service := NewProfileService(profiles, timeslots, filters, destinations, incidents, evaluator.NoFallback(), testLogger())

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for _, inc := range []*incident.Incident{
		{ID: 1, Level: 1, Open: true, Stateful: true, SourceID: 1, StartTime: start},
		{ID: 2, Level: 4, Open: true, Stateful: true, SourceID: 2, StartTime: start},
		{ID: 3, Level: 5, Open: false, Stateful: true, SourceID: 3, StartTime: start},
		{ID: 4, Level: 4, Open: true, Stateful: true, SourceID: 3, StartTime: start},
	} {
		_ = incidents.Upsert(ctx, inc)
	}

	ts := timeslot.AllTheTime(1)
	_ = timeslots.Create(ctx, ts)
	severe := &filter.Filter{UserID: 1, Name: "severe", Criteria: filter.Criteria{MaxLevel: filter.Int(2)}}
	source := &filter.Filter{UserID: 1, Name: "source 2", Criteria: filter.Criteria{SourceSystemIDs: []int64{2}}}
	empty := &filter.Filter{UserID: 1, Name: "empty"}
	for _, f := range []*filter.Filter{severe, source, empty} {
		_ = filters.Create(ctx, f)
	}

	p := &notification.Profile{UserID: 1, TimeslotID: ts.ID, FilterIDs: []int64{severe.ID, source.ID, empty.ID}, Active: true}
	if err := service.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := service.Incidents(ctx, 1, p.ID, 0, 0)
	if err != nil {
		t.Fatalf("Incidents() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("expected incidents 1 and 2, got %+v", got)
	}

	page, err := service.Incidents(ctx, 1, p.ID, 1, 1)
	if err != nil {
		t.Fatalf("Incidents() error = %v", err)
	}
	if len(page) != 1 || page[0].ID != 2 {
		t.Errorf("expected the second page to hold incident 2, got %+v", page)
	}

	bare := &notification.Profile{UserID: 1, TimeslotID: ts.ID, Active: true}
	if err := service.Create(ctx, bare); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got, err := service.Incidents(ctx, 1, bare.ID, 0, 0); err != nil || len(got) != 0 {
		t.Errorf("expected a profile without filters to select nothing, got %+v %v", got, err)
	}

	if _, err := service.Incidents(ctx, 2, p.ID, 0, 0); !errors.IsNotFound(err) {
		t.Errorf("expected other users not to see the profile, got %v", err)
	}
}
