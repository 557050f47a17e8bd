package beacon

import (
	"encoding/json"
	"time"
)

// UnexpectedShapeMessage is the diagnostic message set on snapshots
// produced from payloads whose shape was not recognized.
const UnexpectedShapeMessage = "Unexpected health payload shape"

// Normalize maps an arbitrary 2xx response body into a canonical
// [Snapshot]. It is a total function: any input yields a snapshot, never
// an error.
//
// A JSON object carrying a string "status" field passes through verbatim,
// including its "checks" sub-object if present (defaulting to an empty
// map). Anything else - invalid JSON, a non-object, or an object without
// a status - yields a [StatusUnknown] snapshot with [UnexpectedShapeMessage]
// and the original payload preserved in Raw.
//
// Transport failures never reach Normalize; the scheduler classifies them
// first and they surface as error state, not snapshots.
func Normalize(body []byte, at time.Time) Snapshot {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return unknownSnapshot(body, at)
	}

	status, ok := doc["status"].(string)
	if !ok || status == "" {
		return unknownSnapshot(body, at)
	}

	snap := Snapshot{
		Status:     Status(status),
		Checks:     make(map[string]Check),
		CapturedAt: at,
	}

	if checks, ok := doc["checks"].(map[string]any); ok {
		for name, entry := range checks {
			snap.Checks[name] = normalizeCheck(entry)
		}
	}

	return snap
}

// normalizeCheck projects one subsystem record defensively: known fields
// by presence check, everything else into Details.
func normalizeCheck(entry any) Check {
	fields, ok := entry.(map[string]any)
	if !ok {
		return Check{}
	}

	var c Check
	for key, value := range fields {
		switch key {
		case "status":
			c.Status, _ = value.(string)
		case "error":
			c.Error, _ = value.(string)
		case "response_time":
			c.ResponseTime, _ = value.(float64)
		case "last_check":
			c.LastCheck, _ = value.(string)
		default:
			if c.Details == nil {
				c.Details = make(map[string]any)
			}
			c.Details[key] = value
		}
	}
	return c
}

// unknownSnapshot is the fallback for unrecognized payload shapes.
func unknownSnapshot(body []byte, at time.Time) Snapshot {
	return Snapshot{
		Status:     StatusUnknown,
		Checks:     make(map[string]Check),
		Message:    UnexpectedShapeMessage,
		Raw:        rawPayload(body),
		CapturedAt: at,
	}
}

// rawPayload preserves the original body for debugging. Invalid JSON is
// wrapped as a JSON string so the enclosing snapshot still marshals.
func rawPayload(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return append(json.RawMessage(nil), body...)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}
