package beacon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/beaconhq/beacon/internal/poller"
	"github.com/beaconhq/beacon/internal/store"
)

const (
	defaultHealthPath = "/health/ready"
	defaultInterval   = 10 * time.Second
	defaultMaxBackoff = 2 * time.Minute
	defaultTimeout    = 5 * time.Second
)

// State is a consumer's read-only view of the shared health state.
//
// A nil Snapshot with a non-empty Error means the monitor has never
// successfully connected; a non-nil Snapshot with a non-empty Error means
// the last poll failed but a previously good snapshot is still available
// (stale but valid). Failures never null out a snapshot.
type State struct {
	// Snapshot is the latest successfully obtained snapshot, or nil if no
	// poll has succeeded yet.
	Snapshot *Snapshot

	// Ready reports whether the snapshot status is exactly [StatusReady].
	Ready bool

	// Error is the message from the most recent failed poll. Empty if the
	// most recent poll succeeded.
	Error string

	// Loading is true until the first poll outcome (success or failure).
	Loading bool

	// LastUpdated is the time of the last successful snapshot update.
	// Zero if no poll has succeeded yet.
	LastUpdated time.Time
}

// Monitor owns the single logical poll loop for one backend health
// endpoint and fans the resulting state out to any number of consumers.
//
// A Monitor is created with [New] and consumed through handles obtained
// from [Monitor.Attach]. The poll loop starts when the first handle
// attaches and stops when the last one closes; no matter how many
// consumers attach, there is exactly one scheduler and one shared store.
//
// The typical lifecycle is:
//
//	mon, err := beacon.New("http://localhost:9000")
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	h := mon.Attach() // first attach starts polling
//	defer h.Close()   // last close stops it
//
//	if h.IsReady() {
//	    // backend is fully able to serve requests
//	}
//
// All methods are safe for concurrent use.
type Monitor struct {
	healthURL  string
	method     string
	headers    map[string]string
	timeout    time.Duration
	interval   time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
	onUpdate   []func(State)

	mu    sync.Mutex
	refs  int
	sched *poller.Scheduler
	store *store.HealthStore
	wg    sync.WaitGroup
}

// New creates a [Monitor] for the backend at baseURL.
//
// The backend is expected to expose a readiness endpoint (default path
// /health/ready, override with [WithHealthPath]) returning a JSON object
// with at least a "status" string field and optionally a "checks" object.
// Other options have sensible defaults:
//   - Poll interval: 10 seconds
//   - Backoff ceiling: 2 minutes
//   - Request timeout: 5 seconds
//   - Method: GET
//
// Returns an error if the URL is invalid or an option rejects its value.
func New(baseURL string, opts ...Option) (*Monitor, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, errors.New("backend URL must have a scheme (http:// or https://)")
	}

	cfg := &monitorConfig{
		healthPath: defaultHealthPath,
		headers:    make(map[string]string),
		timeout:    defaultTimeout,
		interval:   defaultInterval,
		maxBackoff: defaultMaxBackoff,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		healthURL:  strings.TrimRight(baseURL, "/") + cfg.healthPath,
		method:     cfg.method,
		headers:    cfg.headers,
		timeout:    cfg.timeout,
		interval:   cfg.interval,
		maxBackoff: cfg.maxBackoff,
		logger:     logger,
		onUpdate:   cfg.onUpdate,
	}, nil
}

// HealthURL returns the absolute URL of the polled readiness endpoint.
func (m *Monitor) HealthURL() string {
	return m.healthURL
}

// Interval returns the configured base poll interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Attach registers a consumer and returns its [Handle].
//
// The first attach starts the poll loop, which issues its first poll
// immediately. Every handle must eventually be closed; the poll loop
// stops synchronously when the last handle closes.
func (m *Monitor) Attach() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs++
	if m.refs == 1 {
		m.startLocked()
	}
	return &Handle{mon: m}
}

// startLocked creates a fresh store and scheduler and starts the consume
// loop. Caller holds m.mu.
func (m *Monitor) startLocked() {
	m.store = store.NewHealthStore()
	m.sched = poller.NewScheduler(poller.Config{
		URL:        m.healthURL,
		Method:     m.method,
		Headers:    m.headers,
		Timeout:    m.timeout,
		Interval:   m.interval,
		MaxBackoff: m.maxBackoff,
	}, m.logger)

	m.sched.Start(context.Background())

	m.wg.Add(1)
	go m.consume(m.sched, m.store)

	m.logger.Info("health monitor started",
		"url", m.healthURL,
		"interval", m.interval.String(),
		"max_backoff", m.maxBackoff.String(),
	)
}

// detach drops one reference; the last one tears the loop down.
func (m *Monitor) detach() {
	m.mu.Lock()
	m.refs--
	var sched *poller.Scheduler
	if m.refs == 0 {
		sched = m.sched
		m.sched = nil
	}
	m.mu.Unlock()

	if sched != nil {
		// Stop cancels the pending timer synchronously and discards any
		// in-flight poll's result; the consume loop then drains out.
		sched.Stop()
		m.wg.Wait()
		m.logger.Info("health monitor stopped", "url", m.healthURL)
	}
}

// consume applies raw poll results to the shared store. It is the store's
// only writer and exits when the scheduler's results channel closes.
func (m *Monitor) consume(sched *poller.Scheduler, st *store.HealthStore) {
	defer m.wg.Done()

	for result := range sched.Results() {
		if result.Failed() {
			msg := failureMessage(result.Response)
			st.SetError(msg)
			m.logger.Warn("health poll failed",
				"error", msg,
				"latency_ms", result.Latency.Milliseconds(),
			)
		} else {
			snap := Normalize(result.Body, result.CheckedAt)
			st.SetSnapshot(snapshotToStore(snap))
			m.logger.Debug("health poll completed",
				"status", snap.Status.String(),
				"checks", len(snap.Checks),
				"latency_ms", result.Latency.Milliseconds(),
			)
		}

		if len(m.onUpdate) > 0 {
			state := stateFromStore(st.State())
			for _, cb := range m.onUpdate {
				invokeCallbackSafe(cb, state, m.logger)
			}
		}
	}
}

// currentStore returns the active store, or nil when no consumer is
// attached.
func (m *Monitor) currentStore() *store.HealthStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// Handle is a consumer's read-only view into the shared health state,
// plus the manual refresh control.
//
// A Handle is obtained from [Monitor.Attach] and released with
// [Handle.Close]. Using a handle after Close is a wiring bug in the
// consumer, not a runtime condition, and panics immediately rather than
// silently returning defaults.
type Handle struct {
	mon    *Monitor
	closed atomic.Bool

	subMu sync.Mutex
	subs  []<-chan store.State
}

// Close releases the handle. The poll loop stops synchronously when the
// last handle closes; any subscription channels from [Handle.Updates]
// are closed. Close is idempotent per handle.
func (h *Handle) Close() {
	if h.closed.Swap(true) {
		return
	}

	st := h.mon.currentStore()
	h.subMu.Lock()
	subs := h.subs
	h.subs = nil
	h.subMu.Unlock()
	if st != nil {
		for _, ch := range subs {
			st.Unsubscribe(ch)
		}
	}

	h.mon.detach()
}

// active returns the monitor's store, panicking if the handle was closed.
func (h *Handle) active() *store.HealthStore {
	if h.closed.Load() {
		panic("beacon: handle used after Close")
	}
	st := h.mon.currentStore()
	if st == nil {
		// refs > 0 implies an active store; reaching here means the
		// handle escaped its lifecycle
		panic("beacon: handle used outside an active monitor")
	}
	return st
}

// State returns a copy of the current shared health state.
func (h *Handle) State() State {
	return stateFromStore(h.active().State())
}

// Snapshot returns the latest successfully obtained snapshot, or nil if
// no poll has succeeded yet.
func (h *Handle) Snapshot() *Snapshot {
	return h.State().Snapshot
}

// Err returns the message from the most recent failed poll, or the empty
// string if the most recent poll succeeded.
func (h *Handle) Err() string {
	return h.State().Error
}

// IsLoading reports whether the first poll outcome is still pending.
func (h *Handle) IsLoading() bool {
	return h.State().Loading
}

// LastUpdated returns the time of the last successful snapshot update,
// or the zero time if no poll has succeeded yet.
func (h *Handle) LastUpdated() time.Time {
	return h.State().LastUpdated
}

// IsReady reports whether the latest snapshot's status is exactly
// [StatusReady].
func (h *Handle) IsReady() bool {
	return h.State().Ready
}

// Refresh requests an immediate poll, bypassing any accumulated backoff.
//
// The pending timer is cancelled, the delay resets to the base interval,
// and a poll is issued right away. Safe to call from multiple consumers
// concurrently; simultaneous calls collapse into one immediate poll.
func (h *Handle) Refresh() {
	h.active()

	h.mon.mu.Lock()
	sched := h.mon.sched
	h.mon.mu.Unlock()
	if sched != nil {
		sched.Refresh()
	}
}

// Updates returns a channel that receives a [State] copy after every poll
// outcome. The channel is closed when the handle is closed. Slow readers
// miss updates rather than block the monitor.
func (h *Handle) Updates() <-chan State {
	st := h.active()

	src := st.Subscribe()
	h.subMu.Lock()
	h.subs = append(h.subs, src)
	h.subMu.Unlock()

	out := make(chan State, 16)
	go func() {
		defer close(out)
		for s := range src {
			select {
			case out <- stateFromStore(s):
			default:
				// reader is slow, drop the update
			}
		}
	}()
	return out
}

// failureMessage renders a transport-level poll failure as the error
// string exposed to consumers.
func failureMessage(resp poller.Response) string {
	if resp.Error != nil {
		return resp.Error.Error()
	}
	return fmt.Sprintf("health endpoint returned HTTP %d", resp.StatusCode)
}

// snapshotToStore converts the public snapshot into its storage
// representation.
func snapshotToStore(s Snapshot) store.Snapshot {
	checks := make(map[string]store.Check, len(s.Checks))
	for name, c := range s.Checks {
		checks[name] = store.Check{
			Status:       c.Status,
			Error:        c.Error,
			ResponseTime: c.ResponseTime,
			LastCheck:    c.LastCheck,
			Details:      c.Details,
		}
	}
	return store.Snapshot{
		Status:     s.Status.String(),
		Checks:     checks,
		Message:    s.Message,
		Raw:        s.Raw,
		CapturedAt: s.CapturedAt,
	}
}

// stateFromStore converts the storage state back into the public view.
func stateFromStore(st store.State) State {
	out := State{
		Ready:       st.Ready,
		Loading:     st.Loading,
		LastUpdated: st.LastUpdated,
	}
	if st.Error != nil {
		out.Error = *st.Error
	}
	if st.Snapshot != nil {
		checks := make(map[string]Check, len(st.Snapshot.Checks))
		for name, c := range st.Snapshot.Checks {
			checks[name] = Check{
				Status:       c.Status,
				Error:        c.Error,
				ResponseTime: c.ResponseTime,
				LastCheck:    c.LastCheck,
				Details:      c.Details,
			}
		}
		out.Snapshot = &Snapshot{
			Status:     Status(st.Snapshot.Status),
			Checks:     checks,
			Message:    st.Snapshot.Message,
			Raw:        st.Snapshot.Raw,
			CapturedAt: st.Snapshot.CapturedAt,
		}
	}
	return out
}

// invokeCallbackSafe calls an update callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate into the
// consume loop.
func invokeCallbackSafe(cb func(State), state State, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("update callback panicked",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	cb(state)
}
