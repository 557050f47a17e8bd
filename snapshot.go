package beacon

import (
	"encoding/json"
	"time"
)

// Status represents the health state reported by the monitored backend.
//
// Status is an open string type: the constants below cover the statuses
// the backend is known to report, but unrecognized values pass through
// verbatim so they can still be displayed. Only the complete absence of a
// status in a payload maps to [StatusUnknown].
type Status string

const (
	// StatusReady indicates the backend is fully able to serve requests.
	// Readiness is a stricter signal than general health; no other status
	// qualifies, including "healthy".
	StatusReady Status = "ready"

	// StatusHealthy indicates the backend is generally healthy but has
	// not asserted full readiness.
	StatusHealthy Status = "healthy"

	// StatusDegraded indicates the backend is partially functional.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy indicates the backend reported itself unhealthy.
	StatusUnhealthy Status = "unhealthy"

	// StatusNotReady indicates the backend is up but not yet ready.
	StatusNotReady Status = "not_ready"

	// StatusError indicates the backend reported an internal error.
	// This is a server-reported condition in a well-formed payload, not a
	// transport failure; it does not trigger poll backoff.
	StatusError Status = "error"

	// StatusTimeout indicates the backend reported a timeout of one of
	// its own dependencies.
	StatusTimeout Status = "timeout"

	// StatusDisabled indicates the checked capability is switched off.
	StatusDisabled Status = "disabled"

	// StatusNotAvailable indicates the checked capability is not present.
	StatusNotAvailable Status = "not_available"

	// StatusUnknown indicates the payload carried no status at all.
	StatusUnknown Status = "unknown"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// Check is one subsystem's health record inside a [Snapshot].
//
// The backend reports a status plus an open-ended set of metrics per
// subsystem; the known fields are projected and everything else lands in
// Details untouched.
type Check struct {
	// Status is the subsystem's own status string.
	Status string `json:"status,omitempty"`

	// Error is the subsystem's error message, if it reported one.
	Error string `json:"error,omitempty"`

	// ResponseTime is the subsystem's self-reported response time in seconds.
	ResponseTime float64 `json:"response_time,omitempty"`

	// LastCheck is the backend's own timestamp for this check, verbatim.
	// This is backend clock, not client clock.
	LastCheck string `json:"last_check,omitempty"`

	// Details holds any service-specific metrics the subsystem reported
	// beyond the known fields.
	Details map[string]any `json:"details,omitempty"`
}

// Snapshot is the latest known health state of the backend, replaced
// wholesale on each successful poll.
//
// Snapshot is an immutable value. There is no history buffer: each poll
// produces a new snapshot and the previous one is discarded. Transport
// failures never produce snapshots; they surface as an error string on
// the shared state while the last good snapshot stays in place.
type Snapshot struct {
	// Status is the backend-reported status, preserved verbatim.
	Status Status `json:"status"`

	// Checks maps subsystem name to its health record. Never nil.
	Checks map[string]Check `json:"checks"`

	// Message is a diagnostic note, present only when the payload shape
	// was not recognized.
	Message string `json:"message,omitempty"`

	// Raw is the original payload, retained for debugging only when the
	// shape was not recognized.
	Raw json.RawMessage `json:"raw,omitempty"`

	// CapturedAt is when this snapshot was produced (client clock, not
	// backend clock).
	CapturedAt time.Time `json:"captured_at"`
}

// IsReady reports whether the backend is fully able to serve requests.
// Strictly Status == [StatusReady]; "healthy" does not qualify.
func (s Snapshot) IsReady() bool {
	return s.Status == StatusReady
}
