package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpalmerr/pickstore/internal/docstate"
)

const maxResponseBodySize = 1 << 20 // 1MB

const defaultTimeout = 5 * time.Second

// connection pooling limits; the CLI talks to a single host
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// ErrNotFound is returned by [Client.State] when the path selects nothing.
var ErrNotFound = errors.New("no value at path")

// APIError is a non-2xx response from the server.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the server's error text, or the raw body if it was not JSON.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running pickstore server.
//
// Client uses per-request timeouts via context rather than a global timeout.
// Response bodies are limited to 1MB to prevent memory issues.
type Client struct {
	baseURL    *url.URL
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a [Client] for the server at baseURL, for example
// "http://localhost:8080". A timeout of zero or less uses 5 seconds.
//
// Returns an error if baseURL is not an absolute http(s) URL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: u,
		timeout: timeout,
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}, nil
}

// stateResponse mirrors the server's state payload.
type stateResponse struct {
	Select string `json:"select"`
	Value  any    `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// State returns the projection at path. An empty path returns the whole
// document. Returns [ErrNotFound] if nothing is stored at path.
func (c *Client) State(ctx context.Context, path string) (any, error) {
	query := url.Values{}
	if path != "" {
		query.Set("select", path)
	}

	var resp stateResponse
	err := c.do(ctx, http.MethodGet, "/api/state", query, nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w %q", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Dispatch applies op on the server and returns the resulting document.
func (c *Client) Dispatch(ctx context.Context, op docstate.Op) (docstate.Document, error) {
	body, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode op: %w", err)
	}

	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, "/api/dispatch", nil, body, &resp); err != nil {
		return nil, err
	}

	doc, ok := resp.Value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected dispatch response value %T", resp.Value)
	}
	return doc, nil
}

// do performs one request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
