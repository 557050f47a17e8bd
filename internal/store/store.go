package store

import (
	"encoding/json"
	"time"
)

// statusReady is the one status that counts as ready. Readiness is a
// stricter signal than general health: "healthy" does not qualify.
const statusReady = "ready"

// Check is the storage representation of one subsystem's health record.
type Check struct {
	// Status is the subsystem's own status string.
	Status string `json:"status,omitempty"`

	// Error is the subsystem's error message, if it reported one.
	Error string `json:"error,omitempty"`

	// ResponseTime is the subsystem's self-reported response time in seconds.
	ResponseTime float64 `json:"response_time,omitempty"`

	// LastCheck is the backend's own timestamp for this check, verbatim.
	LastCheck string `json:"last_check,omitempty"`

	// Details holds any service-specific metrics the subsystem reported.
	Details map[string]any `json:"details,omitempty"`
}

// Snapshot is the storage representation of a normalized health payload.
//
// Snapshot is decoupled from the beacon package's public Snapshot type to
// avoid an import cycle; the monitor converts between the two. It is
// optimized for JSON serialization (used by the REST API and SSE).
type Snapshot struct {
	// Status is the backend-reported status, preserved verbatim.
	Status string `json:"status"`

	// Checks maps subsystem name to its health record.
	Checks map[string]Check `json:"checks"`

	// Message is a diagnostic note, set when the payload shape was not
	// recognized.
	Message string `json:"message,omitempty"`

	// Raw is the original unparsed payload, retained only when the shape
	// was not recognized.
	Raw json.RawMessage `json:"raw,omitempty"`

	// CapturedAt is the client-clock timestamp of the poll that produced
	// this snapshot.
	CapturedAt time.Time `json:"captured_at"`
}

// State is the consumer-facing view of the shared health state.
//
// State is a value; each read gets a consistent copy. A nil Snapshot with
// a non-nil Error means the monitor has never successfully connected; a
// non-nil Snapshot with a non-nil Error means the last poll failed but a
// previously good snapshot is still available (stale-but-valid).
type State struct {
	// Snapshot is the latest successfully obtained snapshot, or nil if
	// no poll has succeeded yet. Failures never null it out.
	Snapshot *Snapshot `json:"snapshot"`

	// Ready reports whether the snapshot status is exactly "ready".
	Ready bool `json:"ready"`

	// Error is the message from the most recent failed poll, or nil if
	// the most recent poll succeeded.
	Error *string `json:"error"`

	// Loading is true until the first poll outcome (success or failure)
	// has been recorded.
	Loading bool `json:"loading"`

	// LastUpdated is the time of the last successful snapshot update.
	// Zero if no poll has succeeded yet.
	LastUpdated time.Time `json:"last_updated"`
}
