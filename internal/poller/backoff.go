package poller

import "time"

// Backoff tracks the delay before the next scheduled poll.
//
// The policy is exponential with a ceiling: every failure doubles the
// delay up to Max, and any success snaps it back to Base. Base and Max
// must both be positive; if Base exceeds Max the delay never grows
// because it is already at the cap.
//
// Backoff is not safe for concurrent use; the scheduler's single loop
// goroutine is its only writer.
type Backoff struct {
	base  time.Duration
	max   time.Duration
	delay time.Duration
}

// NewBackoff creates a [Backoff] starting at the base interval.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{base: base, max: max, delay: base}
}

// Delay returns the delay to use for the next scheduled poll.
func (b *Backoff) Delay() time.Duration {
	return b.delay
}

// Next records a poll outcome and returns the delay for the next poll.
// Success resets the delay to the base interval; failure doubles it,
// capped at the ceiling.
func (b *Backoff) Next(success bool) time.Duration {
	if success {
		b.delay = b.base
		return b.delay
	}
	doubled := b.delay * 2
	if doubled > b.max {
		doubled = b.max
	}
	// a base above the ceiling stays where it is
	if doubled < b.delay {
		doubled = b.delay
	}
	b.delay = doubled
	return b.delay
}

// Reset restores the delay to the base interval. Used by manual refresh,
// which bypasses any accumulated backoff.
func (b *Backoff) Reset() {
	b.delay = b.base
}
