package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/domain/user"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func TestUserService_Create(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		username string
		wantErr  bool
		wantCode string
	}{
		{
			name:     "successful user creation",
			email:    "test@example.com",
			username: "test",
		},
		{
			name:     "invalid email",
			email:    "not-an-email",
			username: "test",
			wantErr:  true,
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "missing username",
			email:    "user@domain.com",
			wantErr:  true,
			wantCode: errors.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewUserService(testutil.NewMockUserRepository(), testLogger(), user.Hooks{})
			u, err := service.Create(context.Background(), tt.email, tt.username)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.HasCode(err, tt.wantCode) {
					t.Errorf("Create() error code = %v, want %v", err, tt.wantCode)
				}
				return
			}
			if u.ID == 0 || u.Email != tt.email {
				t.Errorf("Create() returned %+v", u)
			}
		})
	}
}

func TestUserService_CreateRunsHooks(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewMockUserRepository()
	timeslots := testutil.NewMockTimeslotRepository()
	destinations := testutil.NewMockDestinationRepository()

	service := NewUserService(users, testLogger(), user.Hooks{
		Created: []user.CreatedHook{DefaultTimeslotHook(timeslots), SyncedEmailHook(destinations)},
	})

	u, err := service.Create(ctx, "ops@example.com", "ops")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	slots, _ := timeslots.ListByUser(ctx, u.ID)
	if len(slots) != 1 || slots[0].Name != timeslot.DefaultName {
		t.Fatalf("expected the default timeslot, got %+v", slots)
	}
	if len(slots[0].Recurrences) != 1 || len(slots[0].Recurrences[0].Days) != 7 {
		t.Errorf("expected one recurrence over seven days, got %+v", slots[0].Recurrences)
	}

	dests, _ := destinations.ListByUser(ctx, u.ID)
	if len(dests) != 1 {
		t.Fatalf("expected one destination, got %d", len(dests))
	}
	if dests[0].Medium != notification.MediumEmail || !dests[0].Synced() || dests[0].Key() != "ops@example.com" {
		t.Errorf("unexpected default destination: %+v", dests[0])
	}
}

func TestUserService_HookFailureKeepsUser(t *testing.T) {
	users := testutil.NewMockUserRepository()
	failing := func(ctx context.Context, u *user.User) error { return stderrors.New("boom") }
	ran := false
	after := func(ctx context.Context, u *user.User) error { ran = true; return nil }

	service := NewUserService(users, testLogger(), user.Hooks{Created: []user.CreatedHook{failing, after}})
	u, err := service.Create(context.Background(), "ops@example.com", "ops")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := users.GetByID(context.Background(), u.ID); err != nil {
		t.Errorf("expected user to be stored, got %v", err)
	}
	if !ran {
		t.Error("expected later hooks to run after a failure")
	}
}

func TestUserService_DuplicateEmail(t *testing.T) {
	service := NewUserService(testutil.NewMockUserRepository(), testLogger(), user.Hooks{})
	ctx := context.Background()

	if _, err := service.Create(ctx, "ops@example.com", "ops"); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	_, err := service.Create(ctx, "ops@example.com", "ops2")
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUserService_UpdateEmailResyncsDestination(t *testing.T) {
	email := func(address string, synced bool) json.RawMessage {
		raw, _ := json.Marshal(notification.EmailSettings{EmailAddress: address, Synced: synced})
		return raw
	}

	tests := []struct {
		name     string
		existing []json.RawMessage
		// wantSynced is the address of the single synced destination afterwards
		wantSynced string
		wantCount  int
	}{
		{
			name:       "synced destination follows the account",
			existing:   []json.RawMessage{email("old@example.com", true)},
			wantSynced: "new@example.com",
			wantCount:  1,
		},
		{
			name:       "existing address takes over the flag",
			existing:   []json.RawMessage{email("old@example.com", true), email("new@example.com", false)},
			wantSynced: "new@example.com",
			wantCount:  2,
		},
		{
			name:       "missing synced destination is created",
			existing:   []json.RawMessage{email("other@example.com", false)},
			wantSynced: "new@example.com",
			wantCount:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			users := testutil.NewMockUserRepository()
			destinations := testutil.NewMockDestinationRepository()
			service := NewUserService(users, testLogger(), user.Hooks{
				EmailChanged: []user.EmailChangedHook{ResyncEmailHook(destinations)},
			})

			u := &user.User{Email: "old@example.com", Username: "ops"}
			_ = users.Create(ctx, u)
			for _, settings := range tt.existing {
				_ = destinations.Create(ctx, &notification.Destination{UserID: u.ID, Medium: notification.MediumEmail, Settings: settings})
			}

			got, err := service.UpdateEmail(ctx, u.ID, " New@Example.com ")
			if err != nil {
				t.Fatalf("UpdateEmail() error = %v", err)
			}
			if got.Email != "new@example.com" {
				t.Errorf("UpdateEmail() email = %q", got.Email)
			}

			dests, _ := destinations.ListByUser(ctx, u.ID)
			if len(dests) != tt.wantCount {
				t.Fatalf("expected %d destinations, got %d", tt.wantCount, len(dests))
			}
			var synced []string
			for _, d := range dests {
				if d.Synced() {
					synced = append(synced, d.Key())
				}
			}
			if len(synced) != 1 || synced[0] != tt.wantSynced {
				t.Errorf("synced destinations = %v, want [%s]", synced, tt.wantSynced)
			}
		})
	}
}

func TestUserService_UpdateEmailValidation(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewMockUserRepository()
	service := NewUserService(users, testLogger(), user.Hooks{})

	a, _ := service.Create(ctx, "a@example.com", "a")
	_, _ = service.Create(ctx, "b@example.com", "b")

	if _, err := service.UpdateEmail(ctx, a.ID, "not-an-email"); !errors.HasCode(err, errors.ErrCodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := service.UpdateEmail(ctx, a.ID, "b@example.com"); !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if _, err := service.UpdateEmail(ctx, 99, "c@example.com"); !errors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if got, err := service.UpdateEmail(ctx, a.ID, "a@example.com"); err != nil || got.Email != "a@example.com" {
		t.Errorf("unchanged email: %+v, %v", got, err)
	}
}
