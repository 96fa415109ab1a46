package client

import (
	"context"
	"net/http"
)

// Health calls the liveness probe
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/healthz", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Ready calls the readiness probe. A server that cannot reach its database
// returns an *APIError for which IsUnavailable is true.
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	var ready HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, &ready); err != nil {
		return nil, err
	}
	return &ready, nil
}
