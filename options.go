package beacon

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	healthPath string
	method     string
	headers    map[string]string
	timeout    time.Duration
	interval   time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
	onUpdate   []func(State)
}

// Option is a function that configures a [Monitor] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithHealthPath], [WithMethod], [WithHeaders],
// [WithTimeout], [WithInterval], [WithMaxBackoff], [WithLogger],
// [WithOnUpdate].
type Option func(*monitorConfig) error

// WithHealthPath sets the readiness path polled on the backend.
//
// Defaults to /health/ready. The path is joined to the base URL given to
// [New].
//
// Returns an error if the path does not start with "/".
func WithHealthPath(path string) Option {
	return func(cfg *monitorConfig) error {
		if !strings.HasPrefix(path, "/") {
			return errors.New("health path must start with /")
		}
		cfg.healthPath = path
		return nil
	}
}

// WithMethod sets the HTTP method used for health polls.
//
// Supported methods are GET (default) and POST, for backends whose
// readiness endpoint requires a POST.
//
// Returns an error for any other method.
func WithMethod(method string) Option {
	return func(cfg *monitorConfig) error {
		switch method {
		case http.MethodGet, http.MethodPost:
			cfg.method = method
			return nil
		default:
			return errors.New("method must be GET or POST")
		}
	}
}

// WithHeaders adds custom HTTP headers to every poll request.
//
// Use this for backends that require authentication. Accepts variadic
// key-value pairs; the number of arguments must be even.
//
// Example:
//
//	mon, err := beacon.New(url,
//	    beacon.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) Option {
	return func(cfg *monitorConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout for health polls.
//
// A poll that does not complete within this duration counts as a
// transport failure and triggers backoff. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInterval sets the base poll interval.
//
// This is the delay between polls while the backend is reachable, and the
// value the delay snaps back to on the first success after failures.
// Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithMaxBackoff sets the ceiling for the failure backoff delay.
//
// After consecutive transport failures the delay doubles each time, never
// exceeding this ceiling. Defaults to 2 minutes. An interval above the
// ceiling is legal: the delay simply never grows.
//
// Returns an error if the duration is zero or negative.
func WithMaxBackoff(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("max backoff must be positive")
		}
		cfg.maxBackoff = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the monitor.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithOnUpdate registers a function called after every poll outcome with
// the resulting [State].
//
// Multiple callbacks may be registered; they execute in registration
// order, synchronously from the monitor's consume loop. Callbacks must be
// non-blocking: long-running work should be dispatched to a goroutine.
// Panics within callbacks are recovered and logged; they do not crash the
// monitor.
//
// Nil callbacks are silently ignored.
func WithOnUpdate(cb func(State)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.onUpdate = append(cfg.onUpdate, cb)
		return nil
	}
}
