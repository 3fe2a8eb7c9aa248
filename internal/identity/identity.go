// Package identity validates bearer tokens against the backend's identity
// service and resolves the authenticated user.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidToken indicates the identity service rejected the token or the
// token resolved to no user.
var ErrInvalidToken = errors.New("invalid token")

// User is the identity resolved from an access token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`

	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`

	UserMetadata struct {
		Role string `json:"role"`
	} `json:"user_metadata"`
}

// AdminRole returns the role claim used for admin checks.
// app_metadata wins over user_metadata; the top-level role (usually just
// "authenticated") is the last resort.
func (u *User) AdminRole() string {
	if u.AppMetadata.Role != "" {
		return u.AppMetadata.Role
	}
	if u.UserMetadata.Role != "" {
		return u.UserMetadata.Role
	}
	return u.Role
}

// Client resolves access tokens via the identity endpoint of the backend
// project (GET <base>/auth/v1/user).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates an identity client. baseURL and apiKey are the backend project
// URL and service credential.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// User validates the access token and returns the user it belongs to.
// Returns ErrInvalidToken when the identity service rejects the token; any
// other failure is returned as-is.
func (c *Client) User(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("identity: unexpected status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("identity: decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}
