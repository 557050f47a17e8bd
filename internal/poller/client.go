package poller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; the monitor holds one long-lived client per
// backend, so the per-host numbers stay small
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Response holds the outcome of a single HTTP request made by [Client].
//
// Response captures everything the scheduler and the batch runner need:
// the body (limited to 1MB), status code, latency, and any error. Errors
// are carried in the Error field rather than returned separately, so a
// request can never throw past this boundary.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though the status code may
	// still indicate a failure).
	Error error
}

// Failed reports whether this response counts as a poll failure: a
// transport error or a non-2xx status code. A well-formed 2xx body that
// itself reports trouble (e.g. status "error") is NOT a failure; the
// backend is reachable and answering.
func (r Response) Failed() bool {
	return r.Error != nil || r.StatusCode < 200 || r.StatusCode >= 300
}

// Client is an HTTP client wrapper for polling a backend health endpoint
// and for running batch request suites.
//
// Client uses per-request timeouts via context rather than a global
// timeout. Response bodies are limited to 1MB to prevent memory issues.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new [Client] with connection pooling enabled.
//
// Timeouts are applied per-request via the context parameter in
// [Client.Do], not as a global client timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
	}
}

// Do performs an HTTP request and returns a structured [Response].
//
// If method is empty, GET is used. A non-nil body is sent as the request
// payload with Content-Type application/json (the backend's health and
// search APIs are JSON throughout). The timeout is applied via context
// cancellation.
//
// Do always returns a Response; errors are captured in the Error field
// rather than returned separately.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout time.Duration) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	respBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       respBody,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. After Close, the
// client remains usable; new connections are established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
