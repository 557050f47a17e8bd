package beacon

import (
	"context"
	"fmt"

	"github.com/beaconhq/beacon/dashboard"
	"github.com/beaconhq/beacon/internal/server"
)

// Serve attaches to the monitor and serves the live dashboard until the
// context is cancelled.
//
// Serve is a blocking call. While it runs:
//
//   - The poll loop is held active (the server counts as a consumer)
//   - The dashboard UI is available at http://localhost:<port>
//   - GET /api/health returns the current shared state as JSON
//   - GET /api/sse streams state updates as Server-Sent Events
//   - POST /api/refresh triggers an immediate poll, bypassing backoff
//
// Returns nil on graceful shutdown, or an error if the server fails to
// bind to the port.
func (m *Monitor) Serve(ctx context.Context, port int, title string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}

	handle := m.Attach()
	defer handle.Close()

	m.mu.Lock()
	st := m.store
	sched := m.sched
	m.mu.Unlock()

	m.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", port))

	srv := server.NewServer(st, sched.Refresh, port, dashboard.Assets, title, m.logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	return nil
}
