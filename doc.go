// Package beacon provides an adaptive health monitor and live dashboard
// for a single backend service.
//
// Beacon is designed as an SDK-first library: it polls a backend readiness
// endpoint on a self-scheduling loop, normalizes whatever payload shape
// comes back into a canonical [Snapshot], recovers from transport failures
// with exponential backoff, and exposes one consistent shared health state
// to any number of consumers without each consumer polling on its own.
//
// # Quick Start
//
// Create a monitor and attach a consumer handle:
//
//	mon, _ := beacon.New("http://localhost:9000")
//
//	h := mon.Attach() // first attach starts the poll loop
//	defer h.Close()   // last close stops it
//
//	if h.IsReady() {
//	    // backend reported status "ready"
//	}
//	h.Refresh() // bypass backoff, poll now
//
// # Configuration
//
// Beacon uses the functional options pattern for configuration:
//
//	mon, err := beacon.New("https://search.internal:9000",
//	    beacon.WithHealthPath("/api/v1/health/ready"),
//	    beacon.WithInterval(10 * time.Second),
//	    beacon.WithMaxBackoff(2 * time.Minute),
//	    beacon.WithHeaders("Authorization", "Bearer token"),
//	)
//
// # Polling and Backoff
//
// The loop polls immediately on the first attach, then re-arms a single
// timer after every attempt. While the backend answers, polls repeat at
// the base interval; each transport failure doubles the delay up to the
// configured ceiling, and the first success snaps it back. A manual
// [Handle.Refresh] cancels the pending timer and polls at once, so a
// user-initiated action never waits out an accumulated backoff window.
//
// Transport failures never discard the last good snapshot: consumers can
// always tell "stale but valid" from "never connected".
//
// # Batch Endpoint Testing
//
// [BatchRunner] executes an ordered request sequence strictly one at a
// time, capturing per-call status, latency, and body-or-error. A failing
// call never aborts the rest of the run.
//
// # Architecture
//
// Beacon consists of several internal packages (under internal/):
//
//   - internal/poller: Single-endpoint poll loop with backoff state machine
//   - internal/store: Shared health state with pub/sub for live updates
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice. The library is designed for single-binary deployment
// using Go's embed directive for static assets.
package beacon
