// Package backend calls the application API endpoints the bridge depends on.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"example.com/healthsync/internal/domain"
)

// ImportRequest is the body of the import endpoint.
type ImportRequest struct {
	Workouts    []domain.NormalizedSessionPayload `json:"workouts"`
	Permissions domain.Grants                     `json:"permissions"`
	LastSyncAt  time.Time                         `json:"lastSyncAt"`
}

// ImportResult echoes the backend's per-item accounting.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Client is an HTTP client for the backend health integration endpoints.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewClient constructs a Client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Import submits one batch of normalized sessions.
func (c *Client) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if req.Workouts == nil {
		req.Workouts = []domain.NormalizedSessionPayload{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return ImportResult{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/integrations/health/import", body)
	if err != nil {
		return ImportResult{}, err
	}
	defer resp.Body.Close()

	var result ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ImportResult{}, fmt.Errorf("decode import response: %w", err)
	}
	return result, nil
}

// ClearImports removes every session the backend imported from the health store.
func (c *Client) ClearImports(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/integrations/health/imports", nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode}
	}
	return resp, nil
}

// StatusError represents a non-successful backend response.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %s %s failed with status %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}
