package services

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// ProfileService implements notification.ProfileService
type ProfileService struct {
	repo         notification.ProfileRepository
	timeslots    timeslot.Repository
	filters      filter.Repository
	destinations notification.DestinationRepository
	incidents    incident.Repository
	eval         *evaluator.Evaluator
	validator    *validator.Validator
	logger       *logger.Logger
}

// NewProfileService creates a new notification profile service
func NewProfileService(
	repo notification.ProfileRepository,
	timeslots timeslot.Repository,
	filters filter.Repository,
	destinations notification.DestinationRepository,
	incidents incident.Repository,
	eval *evaluator.Evaluator,
	log *logger.Logger,
) notification.ProfileService {
	return &ProfileService{
		repo:         repo,
		timeslots:    timeslots,
		filters:      filters,
		destinations: destinations,
		incidents:    incidents,
		eval:         eval,
		validator:    validator.New(),
		logger:       log,
	}
}

// Create validates references and stores the profile
func (s *ProfileService) Create(ctx context.Context, p *notification.Profile) error {
	if err := s.check(ctx, p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    p.UserID,
		"profile_id": p.ID,
	}).Info("Notification profile created")
	return nil
}

// Get retrieves a profile
func (s *ProfileService) Get(ctx context.Context, userID, id int64) (*notification.Profile, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List lists the profiles of a user
func (s *ProfileService) List(ctx context.Context, userID int64) ([]*notification.Profile, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update validates references and replaces the profile
func (s *ProfileService) Update(ctx context.Context, p *notification.Profile) error {
	if err := s.check(ctx, p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Delete deletes a profile
func (s *ProfileService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

// Incidents returns a page of the stored incidents selected by any filter
// of the profile. The timeslot is not applied.
func (s *ProfileService) Incidents(ctx context.Context, userID, id int64, limit, offset int) ([]*incident.Incident, error) {
	p, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	filters, err := s.filters.GetMany(ctx, p.FilterIDs)
	if err != nil {
		return nil, err
	}
	criteria := make([]filter.Criteria, 0, len(p.FilterIDs))
	for _, fid := range p.FilterIDs {
		if f, ok := filters[fid]; ok {
			criteria = append(criteria, f.Criteria)
		}
	}
	return s.incidents.Find(ctx, s.eval.CompileAny(criteria...), limit, offset)
}

// check validates p and rejects references to objects the owner does not own
func (s *ProfileService) check(ctx context.Context, p *notification.Profile) error {
	if problems := s.validator.Validate(p); len(problems) > 0 {
		return errors.ValidationError("Invalid notification profile", problems)
	}
	p.FilterIDs = dedupe(p.FilterIDs)
	p.DestinationIDs = dedupe(p.DestinationIDs)

	timeslots, err := s.timeslots.GetMany(ctx, []int64{p.TimeslotID})
	if err != nil {
		return err
	}
	if ts, ok := timeslots[p.TimeslotID]; !ok {
		return missing("timeslot", p.TimeslotID)
	} else if ts.UserID != p.UserID {
		return errors.Ownership("timeslot", p.TimeslotID)
	}

	filters, err := s.filters.GetMany(ctx, p.FilterIDs)
	if err != nil {
		return err
	}
	for _, id := range p.FilterIDs {
		f, ok := filters[id]
		if !ok {
			return missing("filter", id)
		}
		if f.UserID != p.UserID {
			return errors.Ownership("filter", id)
		}
	}

	destinations, err := s.destinations.GetMany(ctx, p.DestinationIDs)
	if err != nil {
		return err
	}
	for _, id := range p.DestinationIDs {
		d, ok := destinations[id]
		if !ok {
			return missing("destination", id)
		}
		if d.UserID != p.UserID {
			return errors.Ownership("destination", id)
		}
	}
	return nil
}

func missing(resource string, id int64) error {
	return errors.ValidationError(fmt.Sprintf("Unknown %s %d", resource, id), []validator.ValidationError{{
		Field:   resource,
		Tag:     "exists",
		Value:   fmt.Sprintf("%d", id),
		Message: fmt.Sprintf("%s %d does not exist", resource, id),
	}})
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// profileLabel names a profile in user facing messages
func profileLabel(p *notification.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("profile #%d", p.ID)
}
