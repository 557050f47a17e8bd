package poller

import (
	"testing"
	"time"
)

// TestBackoff_DoublesUpToCeiling verifies the core policy: after N
// consecutive failures with base b and ceiling c, the next delay equals
// min(b * 2^N, c).
func TestBackoff_DoublesUpToCeiling(t *testing.T) {
	base := 10 * time.Second
	max := 2 * time.Minute

	b := NewBackoff(base, max)

	want := []time.Duration{
		20 * time.Second,  // after 1 failure
		40 * time.Second,  // after 2
		80 * time.Second,  // after 3
		120 * time.Second, // capped at ceiling
		120 * time.Second, // stays at ceiling
	}

	for i, expected := range want {
		got := b.Next(false)
		if got != expected {
			t.Errorf("after %d failures: got delay %s, want %s", i+1, got, expected)
		}
	}
}

// TestBackoff_SuccessResetsToBase verifies that a success after any number
// of failures snaps the delay back to exactly the base interval.
func TestBackoff_SuccessResetsToBase(t *testing.T) {
	base := 5 * time.Second
	b := NewBackoff(base, time.Minute)

	for i := 0; i < 6; i++ {
		b.Next(false)
	}
	if b.Delay() == base {
		t.Fatal("expected delay to have grown after failures")
	}

	if got := b.Next(true); got != base {
		t.Errorf("after success: got delay %s, want %s", got, base)
	}
}

// TestBackoff_SuccessKeepsBase verifies consecutive successes stay at the
// base interval.
func TestBackoff_SuccessKeepsBase(t *testing.T) {
	base := 10 * time.Second
	b := NewBackoff(base, time.Minute)

	for i := 0; i < 3; i++ {
		if got := b.Next(true); got != base {
			t.Errorf("success %d: got delay %s, want %s", i+1, got, base)
		}
	}
}

// TestBackoff_BaseAboveCeiling verifies that a base interval larger than
// the ceiling never grows: the delay is already past the cap.
func TestBackoff_BaseAboveCeiling(t *testing.T) {
	base := 5 * time.Minute
	max := 2 * time.Minute

	b := NewBackoff(base, max)

	if got := b.Delay(); got != base {
		t.Fatalf("initial delay: got %s, want %s", got, base)
	}
	for i := 0; i < 3; i++ {
		if got := b.Next(false); got != base {
			t.Errorf("failure %d: got delay %s, want %s (must not grow)", i+1, got, base)
		}
	}
}

// TestBackoff_Reset verifies that Reset restores the base interval without
// recording an outcome.
func TestBackoff_Reset(t *testing.T) {
	base := time.Second
	b := NewBackoff(base, time.Minute)

	b.Next(false)
	b.Next(false)

	b.Reset()
	if got := b.Delay(); got != base {
		t.Errorf("after reset: got delay %s, want %s", got, base)
	}
}
