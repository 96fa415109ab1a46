package client

import "context"

// EventService handles event ingestion and resolution calls
type EventService struct {
	client *Client
}

// Send ingests one event
func (s *EventService) Send(ctx context.Context, e *Event) (*AcceptedResponse, error) {
	var resp AcceptedResponse
	if err := s.client.doRequest(ctx, "POST", "/api/v1/events", e, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendBatch ingests several events that are resolved together
func (s *EventService) SendBatch(ctx context.Context, events []*Event) (*AcceptedResponse, error) {
	body := map[string]interface{}{"events": events}
	var resp AcceptedResponse
	if err := s.client.doRequest(ctx, "POST", "/api/v1/events/batch", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resolve returns the destinations of an event without dispatching
func (s *EventService) Resolve(ctx context.Context, e *Event) (*ResolveResponse, error) {
	var resp ResolveResponse
	if err := s.client.doRequest(ctx, "POST", "/api/v1/resolve", e, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
