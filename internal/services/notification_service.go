package services

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
)

// NotificationService implements notification.Service
type NotificationService struct {
	incidents  incident.Repository
	resolver   notification.Resolver
	dispatcher notification.Dispatcher
	send       bool
	logger     *logger.Logger
}

// NewNotificationService creates a new notification service. With send
// false events still update the incident view but nothing is dispatched.
func NewNotificationService(
	incidents incident.Repository,
	resolver notification.Resolver,
	dispatcher notification.Dispatcher,
	send bool,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		incidents:  incidents,
		resolver:   resolver,
		dispatcher: dispatcher,
		send:       send,
		logger:     log,
	}
}

// HandleEvent records the incident state carried by the event and queues
// delivery to every matching destination
func (s *NotificationService) HandleEvent(ctx context.Context, e *incident.Event) error {
	if err := checkEvent(e); err != nil {
		return err
	}
	if err := s.incidents.Upsert(ctx, &e.Incident); err != nil {
		return err
	}

	if !s.send {
		s.logger.WithFields(map[string]interface{}{
			"event_id": e.ID,
		}).Info("Notifications turned off, event not dispatched")
		return nil
	}

	destinations, err := s.resolver.Resolve(ctx, e)
	if err != nil {
		return err
	}
	return s.enqueue(e, destinations)
}

// HandleEvents is HandleEvent for a batch, resolved in a single pass. Events
// that fail validation or repeat an earlier ID are rejected one by one and
// the rest are still handled.
func (s *NotificationService) HandleEvents(ctx context.Context, events []*incident.Event) (*notification.BatchResult, error) {
	res := &notification.BatchResult{}
	valid := make([]*incident.Event, 0, len(events))
	seen := make(map[int64]bool, len(events))
	for i, e := range events {
		err := checkEvent(e)
		if err == nil && seen[e.ID] {
			err = errors.BadRequest(fmt.Sprintf("Duplicate event ID %d in batch", e.ID))
		}
		if err != nil {
			res.Rejected = append(res.Rejected, rejectedEvent(i, e, err))
			continue
		}
		seen[e.ID] = true
		valid = append(valid, e)
	}
	res.Accepted = len(valid)
	if len(res.Rejected) > 0 {
		s.logger.WithFields(map[string]interface{}{
			"events":   len(events),
			"rejected": len(res.Rejected),
		}).Warn("Invalid events dropped from batch")
	}
	if len(valid) == 0 {
		return res, nil
	}

	for _, e := range valid {
		if err := s.incidents.Upsert(ctx, &e.Incident); err != nil {
			res.Unqueued = valid
			return res, err
		}
	}

	if !s.send {
		s.logger.WithFields(map[string]interface{}{
			"events": len(valid),
		}).Info("Notifications turned off, events not dispatched")
		return res, nil
	}

	resolved, err := s.resolver.ResolveMany(ctx, valid)
	if err != nil {
		res.Unqueued = valid
		return res, err
	}

	for i, e := range valid {
		if err := s.enqueue(e, resolved[i]); err != nil {
			res.Unqueued = append(res.Unqueued, e)
		}
	}
	if len(res.Unqueued) > 0 {
		return res, errors.ServiceUnavailable(fmt.Sprintf("%d of %d events could not be queued for delivery", len(res.Unqueued), len(valid)))
	}
	return res, nil
}

func rejectedEvent(index int, e *incident.Event, err error) notification.RejectedEvent {
	r := notification.RejectedEvent{Index: index, Reason: errors.As(err).Message}
	if e != nil {
		r.EventID = e.ID
	}
	return r
}

// Resolve returns the destinations of an event without dispatching
func (s *NotificationService) Resolve(ctx context.Context, e *incident.Event) ([]*notification.Destination, error) {
	if err := checkEvent(e); err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, e)
}

func (s *NotificationService) enqueue(e *incident.Event, destinations []*notification.Destination) error {
	log := s.logger.WithFields(map[string]interface{}{
		"event_id":    e.ID,
		"incident_id": e.Incident.ID,
		"event_type":  e.Type,
	})

	if len(destinations) == 0 {
		log.Info("Event has no listeners")
		return nil
	}

	if err := s.dispatcher.Enqueue(e, destinations); err != nil {
		log.ErrorWithErr(err, "Failed to queue event for delivery")
		return errors.ServiceUnavailable("Delivery queue is unavailable")
	}

	log.With("destinations", len(destinations)).Debug("Event queued for delivery")
	return nil
}

func checkEvent(e *incident.Event) error {
	if e == nil {
		return errors.BadRequest("Missing event")
	}
	if e.ID <= 0 {
		return errors.BadRequest("Event must carry a positive ID")
	}
	if !e.Type.Valid() {
		return errors.BadRequest(fmt.Sprintf("Unknown event type %q", e.Type))
	}
	if e.Incident.ID <= 0 {
		return errors.BadRequest("Event must carry an incident with an ID")
	}
	for _, tag := range e.Incident.Tags {
		if _, _, ok := incident.SplitTag(tag); !ok {
			return errors.BadRequest(fmt.Sprintf("Tag %q is not of the form key=value", tag))
		}
	}
	return nil
}
