package config

import (
	"encoding/json"
	"log/slog"

	"github.com/beaconhq/beacon"
)

// BuildMonitor converts a parsed configuration into an SDK [beacon.Monitor].
func BuildMonitor(cfg *Config, logger *slog.Logger) (*beacon.Monitor, error) {
	opts := []beacon.Option{
		beacon.WithHealthPath(cfg.Backend.HealthPath),
		beacon.WithTimeout(cfg.Backend.Timeout.Duration()),
		beacon.WithInterval(cfg.Poll.Interval.Duration()),
		beacon.WithMaxBackoff(cfg.Poll.MaxBackoff.Duration()),
	}

	if cfg.Backend.Method != "" {
		opts = append(opts, beacon.WithMethod(cfg.Backend.Method))
	}
	if len(cfg.Backend.Headers) > 0 {
		opts = append(opts, beacon.WithHeaders(mapToKeyValuePairs(cfg.Backend.Headers)...))
	}
	if logger != nil {
		opts = append(opts, beacon.WithLogger(logger))
	}

	return beacon.New(cfg.Backend.URL, opts...)
}

// BuildBatch converts a parsed configuration into an SDK [beacon.BatchRunner]
// plus the request sequence from the suite section.
func BuildBatch(cfg *Config, logger *slog.Logger) (*beacon.BatchRunner, []beacon.BatchRequest, error) {
	opts := []beacon.BatchOption{
		beacon.WithBatchTimeout(cfg.Backend.Timeout.Duration()),
	}
	if len(cfg.Backend.Headers) > 0 {
		opts = append(opts, beacon.WithBatchHeaders(mapToKeyValuePairs(cfg.Backend.Headers)...))
	}
	if logger != nil {
		opts = append(opts, beacon.WithBatchLogger(logger))
	}

	runner, err := beacon.NewBatchRunner(cfg.Backend.URL, opts...)
	if err != nil {
		return nil, nil, err
	}

	reqs := make([]beacon.BatchRequest, 0, len(cfg.Suite))
	for _, sr := range cfg.Suite {
		req := beacon.BatchRequest{
			Name:   sr.Name,
			Method: sr.Method,
			Path:   sr.Path,
		}
		if sr.Body != "" {
			req.Body = json.RawMessage(sr.Body)
		}
		reqs = append(reqs, req)
	}

	return runner, reqs, nil
}

// mapToKeyValuePairs flattens a map into the variadic key-value form the
// SDK options expect. Order is not significant for headers.
func mapToKeyValuePairs(m map[string]string) []string {
	pairs := make([]string, 0, len(m)*2)
	for k, v := range m {
		pairs = append(pairs, k, v)
	}
	return pairs
}
