package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// TimeslotService implements timeslot.Service
type TimeslotService struct {
	repo      timeslot.Repository
	location  *time.Location
	validator *validator.Validator
	logger    *logger.Logger
}

// NewTimeslotService creates a new timeslot service. Coverage is evaluated in loc.
func NewTimeslotService(repo timeslot.Repository, loc *time.Location, log *logger.Logger) timeslot.Service {
	if loc == nil {
		loc = time.UTC
	}
	return &TimeslotService{
		repo:      repo,
		location:  loc,
		validator: validator.New(),
		logger:    log,
	}
}

// Create validates and stores a timeslot
func (s *TimeslotService) Create(ctx context.Context, ts *timeslot.Timeslot) error {
	if err := s.validate(ts); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, ts); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     ts.UserID,
		"timeslot_id": ts.ID,
	}).Info("Timeslot created")
	return nil
}

// Get retrieves a timeslot
func (s *TimeslotService) Get(ctx context.Context, userID, id int64) (*timeslot.Timeslot, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// List lists the timeslots of a user
func (s *TimeslotService) List(ctx context.Context, userID int64) ([]*timeslot.Timeslot, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update renames the timeslot and replaces its recurrences
func (s *TimeslotService) Update(ctx context.Context, ts *timeslot.Timeslot) error {
	if err := s.validate(ts); err != nil {
		return err
	}
	return s.repo.Update(ctx, ts)
}

// Delete deletes a timeslot and, through the store, the profiles using it
func (s *TimeslotService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

// Covers checks whether the stored timeslot covers at
func (s *TimeslotService) Covers(ctx context.Context, userID, id int64, at time.Time) (bool, error) {
	ts, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return false, err
	}
	return ts.Covers(at, s.location), nil
}

func (s *TimeslotService) validate(ts *timeslot.Timeslot) error {
	problems := s.validator.Validate(ts)
	for i, r := range ts.Recurrences {
		if r.Start > r.End {
			problems = append(problems, validator.ValidationError{
				Field:   fmt.Sprintf("time_recurrences[%d]", i),
				Tag:     "order",
				Message: "start must not be after end",
			})
		}
	}
	if len(problems) > 0 {
		return errors.ValidationError("Invalid timeslot", problems)
	}
	return nil
}
