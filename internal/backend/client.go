// Package backend provides the HTTP client for the hosted table backend.
//
// The backend exposes tables under /rest/v1/<table> and named remote
// procedures under /rest/v1/rpc/<name>. Every call authenticates with the
// service-role credential; row filtering, ordering and representation are
// controlled through query parameters and Prefer headers.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin client for the backend's REST surface.
// It is safe for concurrent use; the underlying http.Client pools connections.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// New creates a backend client for the given project base URL and service key.
func New(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Select fetches rows from a table. Filters, ordering and column selection are
// passed as query parameters (e.g. company_code=eq.ACME, select=code,name).
// The response body is decoded into out, which should be a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, nil, "", out)
}

// Insert creates rows in a table. When out is non-nil the backend is asked to
// return the created representation, decoded into out.
func (c *Client) Insert(ctx context.Context, table string, body any, out any) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	return c.do(ctx, http.MethodPost, "/rest/v1/"+table, nil, body, prefer, out)
}

// Update patches rows matching the query filters.
func (c *Client) Update(ctx context.Context, table string, query url.Values, body any) error {
	return c.do(ctx, http.MethodPatch, "/rest/v1/"+table, query, body, "return=minimal", nil)
}

// Delete removes rows matching the query filters.
func (c *Client) Delete(ctx context.Context, table string, query url.Values) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/"+table, query, nil, "return=minimal", nil)
}

// RPC invokes a named remote procedure with the given arguments.
// A missing or unsupported procedure is reported as an *APIError for which
// IsUnavailable returns true, so callers can fall back to direct table access.
func (c *Client) RPC(ctx context.Context, name string, args any, out any) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+name, nil, args, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, prefer string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}

	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}
