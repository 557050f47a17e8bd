package store

import (
	"sync"
	"time"
)

// HealthStore holds the process-wide shared health state for one backend.
//
// HealthStore provides thread-safe storage with a publish-subscribe
// mechanism for real-time updates. There is a single current [State],
// replaced wholesale by each poll outcome. Failed polls record an error
// without discarding the last good snapshot, so consumers can always
// distinguish "stale but valid" from "never connected".
//
// Subscribers receive updates via buffered channels (buffer size 100).
// Updates are sent non-blocking; if a subscriber's buffer is full, the
// update is dropped for that subscriber to prevent blocking the writer.
type HealthStore struct {
	mu    sync.RWMutex
	state State

	subMu       sync.RWMutex
	subscribers map[chan State]struct{}
}

// NewHealthStore creates a new [HealthStore].
//
// The store starts in the loading state: no snapshot, no error. It is
// immediately ready for use and requires no cleanup.
func NewHealthStore() *HealthStore {
	return &HealthStore{
		state:       State{Loading: true},
		subscribers: make(map[chan State]struct{}),
	}
}

// SetSnapshot records a successful poll outcome.
//
// The snapshot replaces the previous one wholesale, any stored error is
// cleared, and LastUpdated advances to the snapshot's capture time.
// All subscribers are notified.
func (h *HealthStore) SetSnapshot(snap Snapshot) {
	h.mu.Lock()
	snapCopy := snap
	h.state = State{
		Snapshot:    &snapCopy,
		Ready:       snap.Status == statusReady,
		Loading:     false,
		LastUpdated: snap.CapturedAt,
	}
	updated := h.state
	h.mu.Unlock()

	h.notifySubscribers(updated)
}

// SetError records a failed poll outcome.
//
// The previous snapshot (if any) is left untouched; only the error string
// is replaced and the loading flag cleared. All subscribers are notified.
func (h *HealthStore) SetError(msg string) {
	h.mu.Lock()
	h.state.Error = &msg
	h.state.Loading = false
	updated := h.state
	h.mu.Unlock()

	h.notifySubscribers(updated)
}

// State returns a copy of the current state.
func (h *HealthStore) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// LastUpdated returns the time of the last successful snapshot update,
// or the zero time if no poll has succeeded yet.
func (h *HealthStore) LastUpdated() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.LastUpdated
}

// Subscribe creates a new subscription and returns a channel that receives
// a [State] copy after every update.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), updates are dropped for this subscriber.
//
// Caller must call [HealthStore.Unsubscribe] when done to prevent leaks.
func (h *HealthStore) Subscribe() <-chan State {
	ch := make(chan State, 100)

	h.subMu.Lock()
	h.subscribers[ch] = struct{}{}
	h.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (h *HealthStore) Unsubscribe(ch <-chan State) {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	for subCh := range h.subscribers {
		if subCh == ch {
			delete(h.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the state to all active subscribers.
//
// Non-blocking: if a subscriber's channel buffer is full, the update is
// dropped for that subscriber rather than blocking the update path.
func (h *HealthStore) notifySubscribers(state State) {
	h.subMu.RLock()
	defer h.subMu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- state:
		default:
			// subscriber is slow, drop the update
		}
	}
}
