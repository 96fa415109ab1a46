package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// FilterService handles filter calls
type FilterService struct {
	client *Client
}

// ListOptions contains pagination options
type ListOptions struct {
	Page     int
	PageSize int
}

// List returns the filters of a user
func (s *FilterService) List(ctx context.Context, userID int64) ([]Filter, error) {
	var filters []Filter
	path := fmt.Sprintf("/api/v1/users/%d/filters", userID)
	if err := s.client.doRequest(ctx, "GET", path, nil, &filters); err != nil {
		return nil, err
	}
	return filters, nil
}

// Validate checks a filter document. doc may be an object or a legacy string.
func (s *FilterService) Validate(ctx context.Context, doc json.RawMessage) (*ValidateResponse, error) {
	body := map[string]json.RawMessage{"filter": doc}
	var resp ValidateResponse
	if err := s.client.doRequest(ctx, "POST", "/api/v1/filters/validate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preview returns the stored incidents a filter document selects
func (s *FilterService) Preview(ctx context.Context, userID int64, doc json.RawMessage, opts *ListOptions) (*PreviewResponse, error) {
	path := withPage(fmt.Sprintf("/api/v1/users/%d/filters/preview", userID), opts)
	body := map[string]json.RawMessage{"filter": doc}
	var resp PreviewResponse
	if err := s.client.doRequest(ctx, "POST", path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Incidents returns the stored incidents a saved filter selects
func (s *FilterService) Incidents(ctx context.Context, userID, id int64, opts *ListOptions) (*PreviewResponse, error) {
	return s.client.incidents(ctx, fmt.Sprintf("/api/v1/users/%d/filters/%d/incidents", userID, id), opts)
}

// ProfileIncidents returns the stored incidents any filter of a profile selects
func (s *FilterService) ProfileIncidents(ctx context.Context, userID, profileID int64, opts *ListOptions) (*PreviewResponse, error) {
	return s.client.incidents(ctx, fmt.Sprintf("/api/v1/users/%d/profiles/%d/incidents", userID, profileID), opts)
}

func (c *Client) incidents(ctx context.Context, path string, opts *ListOptions) (*PreviewResponse, error) {
	var resp PreviewResponse
	if err := c.doRequest(ctx, "GET", withPage(path, opts), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func withPage(path string, opts *ListOptions) string {
	if opts == nil {
		return path
	}
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
