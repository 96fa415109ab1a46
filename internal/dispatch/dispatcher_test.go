package dispatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/testutil"
)

type fakeSender struct {
	medium notification.Medium
	fn     func(d *notification.Destination) error

	mu    sync.Mutex
	calls int
}

func (s *fakeSender) Medium() notification.Medium { return s.medium }

func (s *fakeSender) Send(ctx context.Context, d *notification.Destination, msg *notification.Message) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn == nil {
		return nil
	}
	return s.fn(d)
}

func (s *fakeSender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testOptions() Options {
	return Options{
		Workers:         2,
		QueueSize:       10,
		Timeout:         time.Second,
		MaxElapsed:      20 * time.Millisecond,
		InitialInterval: time.Millisecond,
	}
}

func testEvent(id int64) *incident.Event {
	return &incident.Event{
		ID:        id,
		Type:      incident.EventIncidentStart,
		Timestamp: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		Incident: incident.Incident{
			ID:          42,
			Level:       2,
			Open:        true,
			Stateful:    true,
			StartTime:   time.Date(2024, 3, 4, 8, 55, 0, 0, time.UTC),
			Description: "disk full",
		},
	}
}

func destination(id int64, medium notification.Medium) *notification.Destination {
	return &notification.Destination{ID: id, UserID: 1, Medium: medium, Settings: json.RawMessage(`{}`)}
}

func statuses(t *testing.T, repo *testutil.MockDeliveryRepository, eventID int64) map[int64]notification.DeliveryStatus {
	t.Helper()
	list, err := repo.ListByEvent(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	out := make(map[int64]notification.DeliveryStatus)
	for _, d := range list {
		out[d.DestinationID] = d.Status
	}
	return out
}

func TestDispatcher_FailureIsolation(t *testing.T) {
	deliveries := testutil.NewMockDeliveryRepository()
	email := &fakeSender{medium: notification.MediumEmail, fn: func(*notification.Destination) error {
		return stderrors.New("smtp down")
	}}
	webhook := &fakeSender{medium: notification.MediumWebhook, fn: func(*notification.Destination) error {
		return backoff.Permanent(stderrors.New("bad request"))
	}}
	slack := &fakeSender{medium: notification.MediumSlack}

	d := New(deliveries, testutil.NewMockDestinationRepository(), logger.Nop(), testOptions(), email, webhook, slack)
	d.Start(context.Background())

	err := d.Enqueue(testEvent(7), []*notification.Destination{
		destination(1, notification.MediumEmail),
		destination(2, notification.MediumSlack),
		destination(3, notification.MediumWebhook),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	d.Stop()

	got := statuses(t, deliveries, 7)
	want := map[int64]notification.DeliveryStatus{
		1: notification.DeliveryStatusFailed,
		2: notification.DeliveryStatusSent,
		3: notification.DeliveryStatusFailed,
	}
	for id, status := range want {
		if got[id] != status {
			t.Errorf("destination %d: expected %s, got %s", id, status, got[id])
		}
	}

	if email.Calls() < 2 {
		t.Errorf("expected transient failures to be retried, got %d calls", email.Calls())
	}
	if webhook.Calls() != 1 {
		t.Errorf("expected permanent failure to stop retrying, got %d calls", webhook.Calls())
	}
	if slack.Calls() != 1 {
		t.Errorf("expected one slack call, got %d", slack.Calls())
	}
}

func TestDispatcher_SkipsUnregisteredMedium(t *testing.T) {
	deliveries := testutil.NewMockDeliveryRepository()
	email := &fakeSender{medium: notification.MediumEmail}

	d := New(deliveries, testutil.NewMockDestinationRepository(), logger.Nop(), testOptions(), email)
	d.Start(context.Background())

	err := d.Enqueue(testEvent(8), []*notification.Destination{
		destination(1, notification.MediumEmail),
		destination(2, notification.MediumWebhook),
		destination(3, notification.Medium("pager")),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	d.Stop()

	got := statuses(t, deliveries, 8)
	if got[1] != notification.DeliveryStatusSent {
		t.Errorf("expected email sent, got %s", got[1])
	}
	for _, id := range []int64{2, 3} {
		if got[id] != notification.DeliveryStatusSkipped {
			t.Errorf("destination %d: expected skipped, got %s", id, got[id])
		}
	}
	if email.Calls() != 1 {
		t.Errorf("expected one email call, got %d", email.Calls())
	}
}

func TestDispatcher_EnabledMedia(t *testing.T) {
	opts := testOptions()
	opts.EnabledMedia = []string{"email"}

	d := New(testutil.NewMockDeliveryRepository(), testutil.NewMockDestinationRepository(), logger.Nop(), opts,
		&fakeSender{medium: notification.MediumEmail},
		&fakeSender{medium: notification.MediumSlack},
	)

	if !d.Supports(notification.MediumEmail) {
		t.Error("expected email to be supported")
	}
	if d.Supports(notification.MediumSlack) {
		t.Error("expected slack to be disabled")
	}
	if media := d.Media(); len(media) != 1 || media[0] != notification.MediumEmail {
		t.Errorf("unexpected media: %v", media)
	}
}

func TestDispatcher_Enqueue(t *testing.T) {
	opts := testOptions()
	opts.QueueSize = 1
	d := New(testutil.NewMockDeliveryRepository(), testutil.NewMockDestinationRepository(), logger.Nop(), opts)

	dests := []*notification.Destination{destination(1, notification.MediumEmail)}

	if err := d.Enqueue(testEvent(1), nil); err != nil {
		t.Errorf("expected no-op for empty destinations, got %v", err)
	}
	if err := d.Enqueue(testEvent(1), dests); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	if err := d.Enqueue(testEvent(2), dests); !stderrors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	d.Stop()
	if err := d.Enqueue(testEvent(3), dests); !stderrors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	// Stop is idempotent
	d.Stop()
}

func TestDispatcher_Redeliver(t *testing.T) {
	payload, _ := json.Marshal(Render(testEvent(9), ""))

	tests := []struct {
		name        string
		medium      notification.Medium
		destination bool
		sendErr     error
		wantErr     bool
		wantStatus  notification.DeliveryStatus
		wantRetries int
	}{
		{
			name:        "success",
			medium:      notification.MediumEmail,
			destination: true,
			wantStatus:  notification.DeliveryStatusSent,
			wantRetries: 1,
		},
		{
			name:        "failure",
			medium:      notification.MediumEmail,
			destination: true,
			sendErr:     stderrors.New("smtp down"),
			wantErr:     true,
			wantStatus:  notification.DeliveryStatusFailed,
			wantRetries: 1,
		},
		{
			name:        "destination deleted",
			medium:      notification.MediumEmail,
			wantStatus:  notification.DeliveryStatusFailed,
			wantRetries: notification.MaxRetries,
		},
		{
			name:        "medium not installed",
			medium:      notification.MediumSMS,
			destination: true,
			wantStatus:  notification.DeliveryStatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			deliveries := testutil.NewMockDeliveryRepository()
			destinations := testutil.NewMockDestinationRepository()
			if tt.destination {
				_ = destinations.Create(ctx, destination(0, tt.medium))
			}

			rec := &notification.Delivery{
				EventID:       9,
				DestinationID: 1,
				Medium:        tt.medium,
				Status:        notification.DeliveryStatusFailed,
				Payload:       payload,
			}
			_ = deliveries.Create(ctx, rec)

			sendErr := tt.sendErr
			sender := &fakeSender{medium: notification.MediumEmail, fn: func(*notification.Destination) error {
				return sendErr
			}}
			d := New(deliveries, destinations, logger.Nop(), testOptions(), sender)

			err := d.Redeliver(ctx, rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Redeliver() error = %v, wantErr %v", err, tt.wantErr)
			}

			list, _ := deliveries.ListByEvent(ctx, 9)
			if len(list) != 1 {
				t.Fatalf("expected one delivery, got %d", len(list))
			}
			if list[0].Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, list[0].Status)
			}
			if list[0].RetryCount != tt.wantRetries {
				t.Errorf("expected %d retries, got %d", tt.wantRetries, list[0].RetryCount)
			}
			if tt.wantStatus == notification.DeliveryStatusSent && list[0].SentAt == nil {
				t.Error("expected SentAt to be set")
			}
		})
	}
}

func TestRender(t *testing.T) {
	e := testEvent(5)
	e.Type = incident.EventAcknowledge
	e.Incident.Acked = true
	e.Incident.Tags = []string{"host=web1"}

	msg := Render(e, "[argus] ")

	want := "[argus] [Acknowledge] Incident #42: disk full"
	if msg.Subject != want {
		t.Errorf("expected subject %q, got %q", want, msg.Subject)
	}
	if msg.EventID != 5 || msg.IncidentID != 42 || msg.EventType != "ACK" {
		t.Errorf("unexpected identifiers: %+v", msg)
	}
	for _, part := range []string{"Level: 2", "open, acknowledged", "host=web1"} {
		if !strings.Contains(msg.Body, part) {
			t.Errorf("expected body to contain %q, got %q", part, msg.Body)
		}
	}
}
