package services

import (
	"context"
	"strings"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/evaluator"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// FilterService implements filter.Service
type FilterService struct {
	repo      filter.Repository
	profiles  notification.ProfileRepository
	incidents incident.Repository
	eval      *evaluator.Evaluator
	validator *validator.Validator
	logger    *logger.Logger
}

// NewFilterService creates a new filter service
func NewFilterService(
	repo filter.Repository,
	profiles notification.ProfileRepository,
	incidents incident.Repository,
	eval *evaluator.Evaluator,
	log *logger.Logger,
) filter.Service {
	return &FilterService{
		repo:      repo,
		profiles:  profiles,
		incidents: incidents,
		eval:      eval,
		validator: validator.New(),
		logger:    log,
	}
}

// Create validates and stores a filter
func (s *FilterService) Create(ctx context.Context, f *filter.Filter) error {
	if problems := s.validator.Validate(f); len(problems) > 0 {
		return errors.ValidationError("Invalid filter", problems)
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":   f.UserID,
		"filter_id": f.ID,
	}).Info("Filter created")
	return nil
}

// Get retrieves a filter
func (s *FilterService) Get(ctx context.Context, userID, id int64) (*filter.Filter, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List lists the filters of a user
func (s *FilterService) List(ctx context.Context, userID int64) ([]*filter.Filter, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update validates and updates a filter
func (s *FilterService) Update(ctx context.Context, f *filter.Filter) error {
	if problems := s.validator.Validate(f); len(problems) > 0 {
		return errors.ValidationError("Invalid filter", problems)
	}
	return s.repo.Update(ctx, f)
}

// Delete deletes a filter that no profile uses
func (s *FilterService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.repo.GetByID(ctx, userID, id); err != nil {
		return err
	}

	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	var users []string
	for _, p := range profiles {
		for _, fid := range p.FilterIDs {
			if fid == id {
				users = append(users, profileLabel(p))
				break
			}
		}
	}
	if len(users) > 0 {
		return errors.Conflict("Cannot delete this filter since it is in use in the notification profile(s): " +
			strings.Join(users, ", ")).WithDetails(map[string]interface{}{"profiles": users})
	}

	return s.repo.Delete(ctx, userID, id)
}

// Validate checks criteria without storing them
func (s *FilterService) Validate(c filter.Criteria) error {
	if problems := evaluator.ValidateCriteria(s.validator, c); len(problems) > 0 {
		return errors.ValidationError("Invalid filter", problems)
	}
	return nil
}

// Preview narrows the stored incidents with the collection form of c
func (s *FilterService) Preview(ctx context.Context, c filter.Criteria, limit, offset int) ([]*incident.Incident, error) {
	if err := s.Validate(c); err != nil {
		return nil, err
	}
	return s.incidents.Find(ctx, s.eval.Compile(c), limit, offset)
}

// Incidents returns a page of the stored incidents the filter selects
func (s *FilterService) Incidents(ctx context.Context, userID, id int64, limit, offset int) ([]*incident.Incident, error) {
	f, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.incidents.Find(ctx, s.eval.Compile(f.Criteria), limit, offset)
}
