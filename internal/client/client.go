package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/datemate/taskpoll/internal/redact"
	"github.com/datemate/taskpoll/internal/task"
)

const (
	tasksPath = "/api/ai/tasks"

	// Error bodies beyond this size are truncated before decoding.
	maxErrorBody = 64 << 10

	defaultTimeout = 10 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the overall timeout of each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is a task API client. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	c.logger = c.logger.With("component", "task_client")
	return c, nil
}

// GetTask fetches the status record of a task. It never changes backend
// state and is safe to repeat.
func (c *Client) GetTask(ctx context.Context, taskID string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, c.taskPath(taskID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SubmitItinerary queues an itinerary task and returns its id.
func (c *Client) SubmitItinerary(ctx context.Context, p task.ItineraryPayload) (string, error) {
	return c.Submit(ctx, task.TypeItinerary, p)
}

// SubmitReport queues a monthly report summary task and returns its id.
func (c *Client) SubmitReport(ctx context.Context, p task.ReportPayload) (string, error) {
	return c.Submit(ctx, task.TypeReport, p)
}

// Submit queues a task of the given type and returns its id.
func (c *Client) Submit(ctx context.Context, typ task.Type, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", typ, err)
	}

	var resp task.SubmitResponse
	req := task.SubmitRequest{Type: typ, Payload: raw}
	if err := c.do(ctx, http.MethodPost, tasksPath, req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.TaskID) == "" {
		return "", ErrNoTaskID
	}

	c.logger.DebugContext(ctx, "task submitted", "task_id", resp.TaskID, "task_type", typ)
	return resp.TaskID, nil
}

// DeleteTask removes a task record from the backend.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, c.taskPath(taskID), nil, nil)
}

func (c *Client) taskPath(taskID string) string {
	return tasksPath + "/" + url.PathEscape(taskID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "request failed",
			"method", method,
			"path", path,
			"error", redact.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrMalformedResponse, method, path, err)
	}
	return nil
}

// decodeAPIError reads the backend's error body. The task API answers with
// {"error": ...}; some routes answer with {"detail": ...}.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Detail = body.Detail
		if apiErr.Detail == "" {
			apiErr.Detail = body.Error
		}
	}
	if apiErr.Detail == "" {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
