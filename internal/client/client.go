// Package client is the HTTP client for the daemon's status API, used by
// the CLI commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"blogcast/internal/api"
)

// Client talks to a running blogcast daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a client for the daemon listening at bind (host:port).
func New(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Convert submits a URL for conversion and returns the accepted task ID.
func (c *Client) Convert(ctx context.Context, url string) (string, error) {
	var resp api.ConvertResponse
	req := api.ConvertRequest{URL: url}
	if err := c.post(ctx, "/api/convert", req, &resp); err != nil {
		return "", err
	}
	return resp.TaskID, nil
}

// TaskStatus fetches the full projection for one task. A nil result with a
// nil error means the task does not exist.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*api.TaskStatus, error) {
	var status api.TaskStatus
	err := c.get(ctx, "/api/tasks/"+taskID, &status)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// Tasks lists task summaries, optionally filtered by status names.
func (c *Client) Tasks(ctx context.Context, statuses ...string) ([]api.TaskSummary, error) {
	path := "/api/tasks"
	if len(statuses) > 0 {
		query := make([]string, 0, len(statuses))
		for _, status := range statuses {
			query = append(query, "status="+status)
		}
		path += "?" + strings.Join(query, "&")
	}
	var resp api.TaskListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// DaemonStatus fetches the aggregated daemon status.
func (c *Client) DaemonStatus(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// APIError carries the HTTP status and error envelope from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned status %d", e.StatusCode)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope api.ErrorResponse
		if body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(body, &envelope) == nil {
				apiErr.Message = envelope.Error
			}
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapDialError(err error, baseURL string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start it with `blogcast serve`", baseURL)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
