package wpgraphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBodyLen = 512
)

// ErrGraphQL wraps errors reported in a GraphQL response's errors array.
var ErrGraphQL = errors.New("wpgraphql: query failed")

// Client posts GraphQL queries to a WPGraphQL endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	logger   *zap.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithToken sends the token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient constructs a Client for endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// Query executes query and decodes the data member into out.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.endpoint == "" {
		return errors.New("wpgraphql: endpoint is not configured")
	}
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("wpgraphql: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("wpgraphql: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wpgraphql: request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("wpgraphql request",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf("wpgraphql: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("wpgraphql: decode response: %w", err)
	}
	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(messages, "; "))
	}
	if out == nil || len(payload.Data) == 0 || bytes.Equal(payload.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload.Data, out); err != nil {
		return fmt.Errorf("wpgraphql: decode data: %w", err)
	}
	return nil
}
