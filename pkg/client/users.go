package client

import (
	"context"
	"fmt"
	"net/http"
)

// UserService handles user calls
type UserService struct {
	client *Client
}

// Create creates a user. The server adds its default timeslot and synced
// email destination.
func (s *UserService) Create(ctx context.Context, email, username string) (*User, error) {
	body := map[string]string{"email": email, "username": username}
	var u User
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/users", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := s.client.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateEmail changes the address of a user
func (s *UserService) UpdateEmail(ctx context.Context, id int64, email string) (*User, error) {
	body := map[string]string{"email": email}
	var u User
	if err := s.client.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/v1/users/%d/email", id), body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Destinations lists the destinations of a user
func (s *UserService) Destinations(ctx context.Context, id int64) ([]Destination, error) {
	var out []Destination
	if err := s.client.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/destinations", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
