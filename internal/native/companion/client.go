// Package companion talks to the on-device companion agent that fronts the native
// health store over loopback HTTP.
package companion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/healthsync/internal/native"
)

// Client implements native.Module against the companion agent.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient constructs a Client for the agent listening at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// InitHealthKit asks the agent to request the given permissions from the user.
func (c *Client) InitHealthKit(ctx context.Context, perms native.Permissions) error {
	return c.postJSON(ctx, "/v1/healthkit/init", perms)
}

type workoutsResponse struct {
	Workouts []native.Workout `json:"workouts"`
}

// Workouts lists workouts recorded since q.Since.
func (c *Client) Workouts(ctx context.Context, q native.Query) ([]native.Workout, error) {
	params := url.Values{}
	params.Set("since", q.Since.UTC().Format(time.RFC3339Nano))
	params.Set("includeHeartRate", strconv.FormatBool(q.IncludeHeartRate))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/healthkit/workouts?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Op: "list workouts", Status: resp.StatusCode}
	}

	var body workoutsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode workouts: %w", err)
	}
	return body.Workouts, nil
}

// SaveWorkout writes one workout sample.
func (c *Client) SaveWorkout(ctx context.Context, sample native.WorkoutSample) error {
	return c.postJSON(ctx, "/v1/healthkit/workouts", sample)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{Op: "POST " + path, Status: resp.StatusCode}
	}
	return nil
}

// StatusError represents a non-successful response from the companion agent.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("companion %s failed with status %d %s", e.Op, e.Status, http.StatusText(e.Status))
}
