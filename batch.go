package beacon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/poller"
)

const defaultBatchTimeout = 10 * time.Second

// BatchRequest describes one call in a batch run.
type BatchRequest struct {
	// Name is an optional display name; defaults to "METHOD path".
	Name string

	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// Path is joined to the runner's base URL. Must start with "/".
	Path string

	// Body is an optional JSON request payload.
	Body json.RawMessage
}

// BatchResult is the outcome of one call in a batch run.
//
// Every request yields exactly one result; a failed call carries its
// error message and never aborts the remaining sequence.
type BatchResult struct {
	// Name is the request's display name.
	Name string

	// Method and Path identify the call.
	Method string
	Path   string

	// StatusCode is the HTTP status code, zero if no response arrived.
	StatusCode int

	// Elapsed is the time the call took.
	Elapsed time.Duration

	// Body is the response body (limited to 1MB), nil on transport failure.
	Body []byte

	// Error is the failure message: the transport error, or a note about
	// the non-2xx status. Empty when the call succeeded.
	Error string

	// OK reports whether the call completed with a 2xx status.
	OK bool
}

// BatchReport is the outcome of a whole batch run.
type BatchReport struct {
	// RunID uniquely identifies this run in logs and output.
	RunID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Elapsed is the total wall-clock time for the whole sequence.
	Elapsed time.Duration

	// Results holds one entry per request, in request order.
	Results []BatchResult

	// Passed and Failed count the 2xx and non-2xx/errored calls.
	Passed int
	Failed int
}

// BatchRunner executes an ordered sequence of HTTP requests against a
// single backend, strictly sequentially.
//
// The runner mirrors the poll loop's contract at the request boundary:
// every call produces a result object and nothing throws past the runner.
// Unlike the poll loop there is no backoff and no repetition; a batch is
// a one-shot diagnostic sweep of the backend's endpoints.
type BatchRunner struct {
	baseURL string
	headers map[string]string
	timeout time.Duration
	client  *poller.Client
	logger  *slog.Logger
}

// batchConfig holds mutable state during BatchRunner construction.
type batchConfig struct {
	headers map[string]string
	timeout time.Duration
	logger  *slog.Logger
}

// BatchOption configures a [BatchRunner] during construction.
type BatchOption func(*batchConfig) error

// WithBatchHeaders adds HTTP headers sent with every call in a run.
// Accepts variadic key-value pairs; the count must be even.
func WithBatchHeaders(keyValues ...string) BatchOption {
	return func(cfg *batchConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithBatchHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithBatchTimeout sets the per-call timeout. Defaults to 10 seconds.
// Returns an error if the duration is zero or negative.
func WithBatchTimeout(d time.Duration) BatchOption {
	return func(cfg *batchConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithBatchLogger sets a custom [slog.Logger] for the runner.
// Returns an error if the logger is nil.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(cfg *batchConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// NewBatchRunner creates a [BatchRunner] for the backend at baseURL.
func NewBatchRunner(baseURL string, opts ...BatchOption) (*BatchRunner, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, errors.New("base URL must have a scheme (http:// or https://)")
	}

	cfg := &batchConfig{
		headers: make(map[string]string),
		timeout: defaultBatchTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchRunner{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: cfg.headers,
		timeout: cfg.timeout,
		client:  poller.NewClient(),
		logger:  logger,
	}, nil
}

// Run executes the requests strictly sequentially and returns a report
// with one result per request.
//
// A call's failure (transport error or non-2xx) is recorded and the run
// continues with the next request; Run itself never fails. Cancelling the
// context makes the remaining calls fail fast with the context error.
func (r *BatchRunner) Run(ctx context.Context, reqs []BatchRequest) BatchReport {
	report := BatchReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]BatchResult, 0, len(reqs)),
	}

	for _, req := range reqs {
		result := r.runOne(ctx, req)
		if result.OK {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)

		r.logger.Debug("batch call completed",
			"run_id", report.RunID,
			"name", result.Name,
			"status_code", result.StatusCode,
			"ok", result.OK,
			"elapsed_ms", result.Elapsed.Milliseconds(),
		)
	}

	report.Elapsed = time.Since(report.StartedAt)
	return report
}

// runOne issues a single call and maps the transport response onto a
// result object.
func (r *BatchRunner) runOne(ctx context.Context, req BatchRequest) BatchResult {
	name := req.Name
	if name == "" {
		method := req.Method
		if method == "" {
			method = "GET"
		}
		name = method + " " + req.Path
	}

	var body []byte
	if len(req.Body) > 0 {
		body = req.Body
	}

	resp := r.client.Do(ctx, req.Method, r.baseURL+req.Path, r.headers, body, r.timeout)

	result := BatchResult{
		Name:       name,
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Elapsed:    resp.Latency,
		OK:         !resp.Failed(),
	}
	if resp.Failed() {
		result.Error = failureMessage(resp)
	}
	if resp.Error == nil {
		result.Body = resp.Body
	}
	return result
}

// Close releases the runner's pooled connections. The runner remains
// usable afterwards; new connections are established as needed.
func (r *BatchRunner) Close() {
	r.client.Close()
}
