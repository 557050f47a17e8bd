// Package config provides YAML configuration parsing for beacon.
//
// This package enables running beacon as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Search Service Health
//	port: 8080
//
//	backend:
//	  url: ${BACKEND_URL:-http://localhost:9000}
//	  health_path: /api/v1/health/ready
//	  timeout: 5s
//
//	poll:
//	  interval: 10s
//	  max_backoff: 2m
//
//	suite:
//	  - name: search smoke test
//	    method: POST
//	    path: /api/v1/search
//	    body: '{"query": "smoke"}'
package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// minPollInterval is the minimum allowed polling interval for production
// configs. This prevents accidental DoS of the backend with overly
// aggressive polling.
const minPollInterval = 1 * time.Second

// Config is the root configuration structure for beacon.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Beacon" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Backend describes the monitored backend service.
	Backend BackendConfig `yaml:"backend"`

	// Poll configures the health poll loop.
	Poll PollConfig `yaml:"poll"`

	// Suite is the ordered batch request sequence for `beacon batch`.
	Suite []SuiteRequest `yaml:"suite"`
}

// BackendConfig describes the monitored backend service.
type BackendConfig struct {
	// URL is the backend base URL. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// HealthPath is the readiness path polled on the backend.
	// Defaults to /health/ready.
	HealthPath string `yaml:"health_path"`

	// Method is the HTTP method for health polls (GET or POST).
	// Defaults to GET.
	Method string `yaml:"method"`

	// Timeout is the per-request timeout. Defaults to 5s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with every request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`
}

// PollConfig configures the health poll loop.
type PollConfig struct {
	// Interval is the base delay between polls.
	// Accepts duration strings like "10s", "1m", "500ms". Defaults to 10s.
	Interval Duration `yaml:"interval"`

	// MaxBackoff is the ceiling for the failure backoff delay.
	// Defaults to 2m. An interval above the ceiling is legal; the delay
	// simply never grows.
	MaxBackoff Duration `yaml:"max_backoff"`
}

// SuiteRequest defines one call in the batch request sequence.
type SuiteRequest struct {
	// Name is an optional display name for the call.
	Name string `yaml:"name"`

	// Method is the HTTP method. Defaults to GET.
	Method string `yaml:"method"`

	// Path is joined to the backend base URL. Required, must start with "/".
	Path string `yaml:"path"`

	// Body is an optional JSON request payload.
	Body string `yaml:"body"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the backend URL and header
// values. Defaults are applied for Port (8080), HealthPath
// (/health/ready), Timeout (5s), Interval (10s), and MaxBackoff (2m).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Backend.HealthPath == "" {
		cfg.Backend.HealthPath = "/health/ready"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = Duration(5 * time.Second)
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = Duration(10 * time.Second)
	}
	if cfg.Poll.MaxBackoff == 0 {
		cfg.Poll.MaxBackoff = Duration(2 * time.Minute)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Poll.Interval.Duration() < minPollInterval {
		return fmt.Errorf("poll.interval must be at least %s, got %s", minPollInterval, c.Poll.Interval.Duration())
	}
	if c.Poll.MaxBackoff.Duration() <= 0 {
		return fmt.Errorf("poll.max_backoff must be positive, got %s", c.Poll.MaxBackoff.Duration())
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	expanded, err := expandEnvVars(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	c.Backend.URL = expanded

	parsedURL, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("backend.url: scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if !strings.HasPrefix(c.Backend.HealthPath, "/") {
		return fmt.Errorf("backend.health_path must start with /, got %q", c.Backend.HealthPath)
	}

	switch c.Backend.Method {
	case "", http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("backend.method must be GET or POST, got %q", c.Backend.Method)
	}

	for key, value := range c.Backend.Headers {
		expanded, err := expandEnvVars(value)
		if err != nil {
			return fmt.Errorf("backend.headers[%s]: %w", key, err)
		}
		c.Backend.Headers[key] = expanded
	}

	for i := range c.Suite {
		req := &c.Suite[i]

		if req.Path == "" {
			return fmt.Errorf("suite[%d]: path is required", i)
		}
		if !strings.HasPrefix(req.Path, "/") {
			return fmt.Errorf("suite[%d] (%s): path must start with /", i, req.Path)
		}

		switch req.Method {
		case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead:
		default:
			return fmt.Errorf("suite[%d] (%s): unsupported method %q", i, req.Path, req.Method)
		}

		if req.Body != "" && !json.Valid([]byte(req.Body)) {
			return fmt.Errorf("suite[%d] (%s): body is not valid JSON", i, req.Path)
		}
	}

	return nil
}
