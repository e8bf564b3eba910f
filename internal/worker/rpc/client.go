package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scalematch/internal/domain"
	"scalematch/pkg/platform/httputil"
)

const defaultTimeout = 5 * time.Second

// Client calls a single worker over HTTP. The request context bounds every
// call; the client timeout is only a backstop.
type Client struct {
	workerID   string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the worker reachable at baseURL.
func NewClient(workerID, baseURL string, opts ...ClientOption) (*Client, error) {
	if workerID == "" {
		return nil, errors.New("worker id is required")
	}
	if baseURL == "" {
		return nil, errors.New("worker url is required")
	}
	c := &Client{
		workerID:   workerID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WorkerID identifies the worker for breaker and health bookkeeping.
func (c *Client) WorkerID() string {
	return c.workerID
}

// BaseURL returns the worker address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Match sends req to the worker and returns the shard's candidates.
func (c *Client) Match(ctx context.Context, req MatchRequest) ([]domain.Candidate, error) {
	var out MatchResponse
	if err := c.postJSON(ctx, MatchPath, req, &out); err != nil {
		return nil, err
	}
	if out.ShardID != "" && out.ShardID != req.ShardID {
		return nil, fmt.Errorf("worker %s answered for shard %s, asked %s", c.workerID, out.ShardID, req.ShardID)
	}
	return out.Candidates, nil
}

// Health fetches the worker health report.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.getJSON(ctx, HealthPath, &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call worker %s: %w", c.workerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return httputil.ReadError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode worker %s response: %w", c.workerID, err)
	}
	return nil
}
