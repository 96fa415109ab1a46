package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// DestinationService implements notification.DestinationService
type DestinationService struct {
	repo      notification.DestinationRepository
	profiles  notification.ProfileRepository
	validator *validator.Validator
	logger    *logger.Logger
}

// NewDestinationService creates a new destination service
func NewDestinationService(repo notification.DestinationRepository, profiles notification.ProfileRepository, log *logger.Logger) notification.DestinationService {
	return &DestinationService{
		repo:      repo,
		profiles:  profiles,
		validator: validator.New(),
		logger:    log,
	}
}

// Create validates the settings for the medium and stores the destination.
// Destinations created here are never synced.
func (s *DestinationService) Create(ctx context.Context, d *notification.Destination) error {
	settings, err := s.normalize(d.Medium, d.Settings)
	if err != nil {
		return err
	}
	d.Settings = settings

	if err := s.rejectDuplicate(ctx, d); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":        d.UserID,
		"destination_id": d.ID,
		"medium":         d.Medium,
	}).Info("Destination created")
	return nil
}

// Get retrieves a destination
func (s *DestinationService) Get(ctx context.Context, userID, id int64) (*notification.Destination, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List lists the destinations of a user
func (s *DestinationService) List(ctx context.Context, userID int64) ([]*notification.Destination, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update replaces label and settings. The medium of a destination never changes.
func (s *DestinationService) Update(ctx context.Context, d *notification.Destination) (*notification.Destination, error) {
	existing, err := s.repo.GetByID(ctx, d.UserID, d.ID)
	if err != nil {
		return nil, err
	}
	d.Medium = existing.Medium
	d.CreatedAt = existing.CreatedAt

	settings, err := s.normalize(d.Medium, d.Settings)
	if err != nil {
		return nil, err
	}
	d.Settings = settings

	if err := s.rejectDuplicate(ctx, d); err != nil {
		return nil, err
	}

	if existing.Synced() {
		if d.Key() == existing.Key() {
			// Only the label may change on an unchanged synced address
			d.Settings = existing.Settings
		} else if err := s.preserveSynced(ctx, existing); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// preserveSynced copies a synced destination before its address is overwritten
func (s *DestinationService) preserveSynced(ctx context.Context, existing *notification.Destination) error {
	clone := &notification.Destination{
		UserID:   existing.UserID,
		Medium:   existing.Medium,
		Label:    existing.Label,
		Settings: existing.Settings,
	}
	if err := s.repo.Create(ctx, clone); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":        existing.UserID,
		"destination_id": existing.ID,
		"clone_id":       clone.ID,
	}).Info("Cloned synced email destination on update")
	return nil
}

// Delete deletes a destination that is neither synced nor used by a profile
func (s *DestinationService) Delete(ctx context.Context, userID, id int64) error {
	d, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	problems := make(map[string]interface{})
	if d.Synced() {
		problems["synced"] = "Email address is read-only, it is defined by an outside source."
	}
	n, err := s.profiles.CountByDestination(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		problems["profiles"] = fmt.Sprintf("Destination is in use by %d notification profile(s).", n)
	}
	if len(problems) > 0 {
		return errors.Conflict("Cannot delete this destination").WithDetails(problems)
	}

	return s.repo.Delete(ctx, userID, id)
}

func (s *DestinationService) rejectDuplicate(ctx context.Context, d *notification.Destination) error {
	existing, err := s.repo.ListByUser(ctx, d.UserID)
	if err != nil {
		return err
	}
	key := d.Key()
	for _, other := range existing {
		if other.ID != d.ID && other.Medium == d.Medium && other.Key() == key {
			return errors.Conflict(fmt.Sprintf("A %s destination with these settings already exists", d.Medium.DisplayName()))
		}
	}
	return nil
}

// normalize decodes settings into the typed form of the medium, validates
// them and returns the canonical encoding. The synced flag is never accepted
// from callers.
func (s *DestinationService) normalize(m notification.Medium, raw json.RawMessage) (json.RawMessage, error) {
	var settings interface{}
	switch m {
	case notification.MediumEmail:
		settings = &notification.EmailSettings{}
	case notification.MediumSMS:
		settings = &notification.SMSSettings{}
	case notification.MediumSlack:
		settings = &notification.SlackSettings{}
	case notification.MediumWebhook:
		settings = &notification.WebhookSettings{}
	default:
		return nil, errors.ValidationError("Invalid destination", []validator.ValidationError{{
			Field:   "media",
			Tag:     "oneof",
			Value:   string(m),
			Message: fmt.Sprintf("Medium %q is not supported", m),
		}})
	}

	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(settings); err != nil {
		return nil, errors.ValidationError("Invalid destination settings", []validator.ValidationError{{
			Field:   "settings",
			Tag:     "json",
			Message: err.Error(),
		}})
	}

	if email, ok := settings.(*notification.EmailSettings); ok {
		email.Synced = false
	}
	if problems := s.validator.Validate(settings); len(problems) > 0 {
		return nil, errors.ValidationError("Invalid destination settings", problems)
	}

	out, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.Internal("Failed to encode destination settings", err)
	}
	return out, nil
}
