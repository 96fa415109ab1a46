package services

import (
	"context"
	"encoding/json"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/domain/user"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// UserService implements user.Service
type UserService struct {
	repo      user.Repository
	hooks     user.Hooks
	validator *validator.Validator
	logger    *logger.Logger
}

// NewUserService creates a new user service. Hooks of each kind run in order.
func NewUserService(repo user.Repository, log *logger.Logger, hooks user.Hooks) user.Service {
	return &UserService{
		repo:      repo,
		hooks:     hooks,
		validator: validator.New(),
		logger:    log,
	}
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create creates a new user and runs the created hooks
func (s *UserService) Create(ctx context.Context, email, username string) (*user.User, error) {
	u := &user.User{
		Email:    user.NormalizeEmail(email),
		Username: username,
	}
	if problems := s.validator.Validate(u); len(problems) > 0 {
		return nil, errors.ValidationError("Invalid user", problems)
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create user")
		return nil, err
	}

	for _, hook := range s.hooks.Created {
		if err := hook(ctx, u); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"user_id": u.ID,
			}).ErrorWithErr(err, "User post-create hook failed")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("User created")

	return u, nil
}

// UpdateEmail stores a new address and runs the email changed hooks
func (s *UserService) UpdateEmail(ctx context.Context, id int64, email string) (*user.User, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := current.Email
	u := *current
	u.Email = user.NormalizeEmail(email)
	if u.Email == previous {
		return current, nil
	}
	if problems := s.validator.Validate(&u); len(problems) > 0 {
		return nil, errors.ValidationError("Invalid user", problems)
	}

	if err := s.repo.UpdateEmail(ctx, &u); err != nil {
		return nil, err
	}

	for _, hook := range s.hooks.EmailChanged {
		if err := hook(ctx, &u, previous); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"user_id": u.ID,
			}).ErrorWithErr(err, "User email hook failed")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  u.ID,
		"previous": previous,
		"email":    u.Email,
	}).Info("User email changed")

	return &u, nil
}

// DefaultTimeslotHook gives every new user a timeslot covering the whole week
func DefaultTimeslotHook(repo timeslot.Repository) user.CreatedHook {
	return func(ctx context.Context, u *user.User) error {
		return repo.Create(ctx, timeslot.AllTheTime(u.ID))
	}
}

// SyncedEmailHook gives every new user a read-only email destination
// carrying the address of the account
func SyncedEmailHook(repo notification.DestinationRepository) user.CreatedHook {
	return func(ctx context.Context, u *user.User) error {
		if u.Email == "" {
			return nil
		}
		return createSyncedEmail(ctx, repo, u)
	}
}

// ResyncEmailHook keeps exactly one synced email destination, the one that
// carries the account address. An existing destination with the new address
// takes over the flag. Otherwise the synced destination follows the new
// address in place so profile links stay intact.
func ResyncEmailHook(repo notification.DestinationRepository) user.EmailChangedHook {
	return func(ctx context.Context, u *user.User, previous string) error {
		dests, err := repo.ListByUser(ctx, u.ID)
		if err != nil {
			return err
		}

		var target *notification.Destination
		var synced []*notification.Destination
		for _, d := range dests {
			if d.Medium != notification.MediumEmail {
				continue
			}
			if d.Key() == u.Email {
				target = d
			} else if d.Synced() {
				synced = append(synced, d)
			}
		}

		if target == nil && len(synced) > 0 {
			target, synced = synced[0], synced[1:]
		}
		for _, d := range synced {
			if err := setEmailSettings(ctx, repo, d, "", false); err != nil {
				return err
			}
		}
		if target == nil {
			return createSyncedEmail(ctx, repo, u)
		}
		return setEmailSettings(ctx, repo, target, u.Email, true)
	}
}

func createSyncedEmail(ctx context.Context, repo notification.DestinationRepository, u *user.User) error {
	settings, err := json.Marshal(notification.EmailSettings{EmailAddress: u.Email, Synced: true})
	if err != nil {
		return err
	}
	return repo.Create(ctx, &notification.Destination{
		UserID:   u.ID,
		Medium:   notification.MediumEmail,
		Settings: settings,
	})
}

// setEmailSettings rewrites the settings of an email destination. An empty
// address keeps the stored one.
func setEmailSettings(ctx context.Context, repo notification.DestinationRepository, d *notification.Destination, address string, synced bool) error {
	var current notification.EmailSettings
	if err := json.Unmarshal(d.Settings, &current); err != nil {
		return err
	}
	if address == "" {
		address = current.EmailAddress
	}
	settings, err := json.Marshal(notification.EmailSettings{EmailAddress: address, Synced: synced})
	if err != nil {
		return err
	}
	updated := *d
	updated.Settings = settings
	return repo.Update(ctx, &updated)
}
