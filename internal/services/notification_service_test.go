package services

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/resolver"
	"github.com/pratik-mahalle/alertroute/internal/testutil"
)

type recordingDispatcher struct {
	queued map[int64][]int64
	err    error
}

func (d *recordingDispatcher) Enqueue(e *incident.Event, dests []*notification.Destination) error {
	if d.err != nil {
		return d.err
	}
	for _, dest := range dests {
		d.queued[e.ID] = append(d.queued[e.ID], dest.ID)
	}
	return nil
}

func (d *recordingDispatcher) Supports(m notification.Medium) bool { return true }

type notificationFixture struct {
	incidents  *testutil.MockIncidentRepository
	profiles   *testutil.MockProfileRepository
	dispatcher *recordingDispatcher
	logs       *bytes.Buffer
}

// newNotificationFixture wires one user whose only profile listens to
// level 1 and 2 incidents at any time
func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()
	ctx := context.Background()

	timeslots := testutil.NewMockTimeslotRepository()
	filters := testutil.NewMockFilterRepository()
	destinations := testutil.NewMockDestinationRepository()
	profiles := testutil.NewMockProfileRepository(timeslots, filters, destinations)

	ts := timeslot.AllTheTime(1)
	_ = timeslots.Create(ctx, ts)
	f := &filter.Filter{UserID: 1, Name: "severe", Criteria: filter.Criteria{MaxLevel: filter.Int(2)}}
	_ = filters.Create(ctx, f)
	d := &notification.Destination{UserID: 1, Medium: notification.MediumEmail, Settings: json.RawMessage(`{"email_address":"ops@example.com"}`)}
	_ = destinations.Create(ctx, d)
	_ = profiles.Create(ctx, &notification.Profile{
		UserID: 1, TimeslotID: ts.ID, FilterIDs: []int64{f.ID}, DestinationIDs: []int64{d.ID}, Active: true,
	})

	return &notificationFixture{
		incidents:  testutil.NewMockIncidentRepository(),
		profiles:   profiles,
		dispatcher: &recordingDispatcher{queued: make(map[int64][]int64)},
		logs:       &bytes.Buffer{},
	}
}

func (f *notificationFixture) service(send bool) *NotificationService {
	log := logger.New(logger.Config{Level: "info", Format: "json", Writer: f.logs})
	matcher := resolver.NewMatcher(evaluator.NoFallback(), resolver.IncidentAndEvent, time.UTC)
	r := resolver.New(f.profiles, testutil.NewMockMediaRepository(), f.dispatcher, matcher, log)
	return NewNotificationService(f.incidents, r, f.dispatcher, send, log)
}

func event(id, incidentID int64, level int) *incident.Event {
	return &incident.Event{
		ID:   id,
		Type: incident.EventIncidentStart,
		Incident: incident.Incident{
			ID: incidentID, Level: level, Open: true, Stateful: true,
			StartTime: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			Tags:      []string{"host=web1"},
		},
	}
}

func TestNotificationService_HandleEvent(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(true)
	ctx := context.Background()

	if err := s.HandleEvent(ctx, event(1, 10, 1)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if got := f.dispatcher.queued[1]; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected destination 1 queued, got %v", got)
	}
	if _, err := f.incidents.GetByID(ctx, 10); err != nil {
		t.Errorf("expected incident view to be stored, got %v", err)
	}

	if err := s.HandleEvent(ctx, event(2, 11, 4)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if _, ok := f.dispatcher.queued[2]; ok {
		t.Error("expected nothing queued for a level 4 incident")
	}
	if !strings.Contains(f.logs.String(), "Event has no listeners") {
		t.Errorf("expected a no listeners log line, got %s", f.logs.String())
	}
}

func TestNotificationService_SendDisabled(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(false)
	ctx := context.Background()

	res, err := s.HandleEvents(ctx, []*incident.Event{event(1, 10, 1), event(2, 11, 1)})
	if err != nil {
		t.Fatalf("HandleEvents() error = %v", err)
	}
	if res.Accepted != 2 {
		t.Errorf("expected 2 accepted events, got %d", res.Accepted)
	}
	if len(f.dispatcher.queued) != 0 {
		t.Errorf("expected nothing queued, got %v", f.dispatcher.queued)
	}
	if f.profiles.ListCalls != 0 {
		t.Errorf("expected no resolution, got %d scans", f.profiles.ListCalls)
	}
	if _, err := f.incidents.GetByID(ctx, 11); err != nil {
		t.Errorf("expected incident view to be stored, got %v", err)
	}
}

func TestNotificationService_HandleEventsResolvesOnce(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(true)

	events := []*incident.Event{event(1, 10, 1), event(2, 11, 3), event(3, 12, 2)}
	if _, err := s.HandleEvents(context.Background(), events); err != nil {
		t.Fatalf("HandleEvents() error = %v", err)
	}
	if f.profiles.ListCalls != 1 {
		t.Errorf("expected one profile scan, got %d", f.profiles.ListCalls)
	}
	if len(f.dispatcher.queued) != 2 || f.dispatcher.queued[1] == nil || f.dispatcher.queued[3] == nil {
		t.Errorf("unexpected queued events: %v", f.dispatcher.queued)
	}
}

func TestNotificationService_QueueFull(t *testing.T) {
	f := newNotificationFixture(t)
	f.dispatcher.err = stderrors.New("dispatch queue is full")
	s := f.service(true)

	err := s.HandleEvent(context.Background(), event(1, 10, 1))
	if !errors.HasCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected service unavailable, got %v", err)
	}
}

func TestNotificationService_RejectsBadEvents(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(true)

	bad := []*incident.Event{
		nil,
		{ID: 1, Type: "XXX", Incident: incident.Incident{ID: 1}},
		{ID: 1, Type: incident.EventClose},
		{ID: 1, Type: incident.EventClose, Incident: incident.Incident{ID: 1, Tags: []string{"broken"}}},
		{ID: 0, Type: incident.EventClose, Incident: incident.Incident{ID: 1}},
	}
	for i, e := range bad {
		if err := s.HandleEvent(context.Background(), e); !errors.HasCode(err, errors.ErrCodeBadRequest) {
			t.Errorf("case %d: expected bad request, got %v", i, err)
		}
	}
}

func TestNotificationService_Resolve(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(true)

	dests, err := s.Resolve(context.Background(), event(1, 10, 2))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(dests) != 1 || dests[0].ID != 1 {
		t.Errorf("unexpected destinations: %+v", dests)
	}
	if len(f.dispatcher.queued) != 0 {
		t.Error("Resolve must not dispatch")
	}
}

func TestNotificationService_HandleEventsMixedBatch(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(true)
	ctx := context.Background()

	noID := event(0, 12, 1)
	dup := event(1, 13, 1)
	events := []*incident.Event{
		event(1, 10, 1),
		{ID: 2, Type: "XXX", Incident: incident.Incident{ID: 11}},
		noID,
		dup,
		event(3, 14, 2),
	}

	res, err := s.HandleEvents(ctx, events)
	if err != nil {
		t.Fatalf("HandleEvents() error = %v", err)
	}
	if res.Accepted != 2 {
		t.Errorf("expected 2 accepted events, got %d", res.Accepted)
	}
	if len(res.Rejected) != 3 {
		t.Fatalf("expected 3 rejected events, got %+v", res.Rejected)
	}
	wantIndex := []int{1, 2, 3}
	for i, r := range res.Rejected {
		if r.Index != wantIndex[i] || r.Reason == "" {
			t.Errorf("rejected[%d] = %+v, want index %d with a reason", i, r, wantIndex[i])
		}
	}
	if !strings.Contains(res.Rejected[2].Reason, "Duplicate") {
		t.Errorf("expected a duplicate ID reason, got %q", res.Rejected[2].Reason)
	}

	if len(f.dispatcher.queued) != 2 || len(f.dispatcher.queued[1]) != 1 || len(f.dispatcher.queued[3]) != 1 {
		t.Errorf("expected events 1 and 3 queued once each, got %v", f.dispatcher.queued)
	}
	if _, err := f.incidents.GetByID(ctx, 13); err == nil {
		t.Error("expected the duplicate event's incident to be left alone")
	}
	if !strings.Contains(f.logs.String(), "Invalid events dropped from batch") {
		t.Errorf("expected a dropped events log line, got %s", f.logs.String())
	}
}

func TestNotificationService_HandleEventsAllInvalid(t *testing.T) {
	f := newNotificationFixture(t)
	s := f.service(true)

	res, err := s.HandleEvents(context.Background(), []*incident.Event{nil, event(0, 10, 1)})
	if err != nil {
		t.Fatalf("HandleEvents() error = %v", err)
	}
	if res.Accepted != 0 || len(res.Rejected) != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
	if f.profiles.ListCalls != 0 {
		t.Errorf("expected no resolution, got %d scans", f.profiles.ListCalls)
	}
}

func TestNotificationService_HandleEventsQueueFullReportsUnqueued(t *testing.T) {
	f := newNotificationFixture(t)
	f.dispatcher.err = stderrors.New("dispatch queue is full")
	s := f.service(true)

	res, err := s.HandleEvents(context.Background(), []*incident.Event{event(1, 10, 1), event(2, 11, 2)})
	if !errors.HasCode(err, errors.ErrCodeServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if len(res.Unqueued) != 2 || res.Unqueued[0].ID != 1 || res.Unqueued[1].ID != 2 {
		t.Errorf("expected both events reported unqueued, got %+v", res.Unqueued)
	}
}
