package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Result holds the raw outcome of a single poll attempt.
//
// Result carries the transport response plus the client-clock timestamp of
// when the attempt completed. Interpretation of the body (normalization)
// happens upstream; the scheduler only decides success vs failure for
// backoff purposes via [Response.Failed].
type Result struct {
	Response

	// CheckedAt is the client-clock timestamp of the attempt.
	CheckedAt time.Time
}

// Config holds the parameters for a [Scheduler].
type Config struct {
	// URL is the absolute URL of the backend health endpoint.
	URL string

	// Method is the HTTP method to use. Empty defaults to GET.
	Method string

	// Headers contains custom HTTP headers sent with every poll.
	Headers map[string]string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Interval is the base delay between polls.
	Interval time.Duration

	// MaxBackoff is the ceiling for the failure backoff delay.
	MaxBackoff time.Duration
}

// Scheduler drives the repeated polling of a single health endpoint.
//
// The loop polls immediately on Start, then re-arms a single timer after
// every attempt: with the base interval after a success, with an
// exponentially growing delay (capped at MaxBackoff) after failures.
// At most one timer is outstanding at any time and polls are strictly
// sequential; there is exactly one loop goroutine.
//
// Raw results are emitted on the channel returned by [Scheduler.Results].
// The channel is closed when the scheduler stops. A poll that is in flight
// when Stop is called has its result discarded, never emitted.
//
// All lifecycle methods (Start, Stop, Refresh) are safe for concurrent use.
type Scheduler struct {
	cfg     Config
	client  *Client
	backoff *Backoff
	results chan Result
	refresh chan struct{}
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a new polling [Scheduler].
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		client:  NewClient(),
		backoff: NewBackoff(cfg.Interval, cfg.MaxBackoff),
		results: make(chan Result, 1),
		refresh: make(chan struct{}, 1),
		logger:  logger,
	}
}

// Results returns a receive-only channel that emits one [Result] per poll.
//
// The channel is closed when the scheduler stops. Consumers should read
// until it is closed to observe every attempt.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Start begins the polling loop in a background goroutine.
//
// Start is non-blocking and returns immediately. The first poll is issued
// with no initial delay. If ctx is nil, context.Background() is used as
// the parent context. Start is idempotent; subsequent calls after the
// first are no-ops, as is Start after Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })
		s.run(pollCtx)
	}()
}

// run is the poll loop. It owns the single timer and the backoff state;
// nothing else touches either.
func (s *Scheduler) run(ctx context.Context) {
	// zero-delay first shot: polling starts immediately
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.refresh:
			// cancel-before-arm: disarm the pending timer, drop any
			// accumulated backoff, poll now
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			s.backoff.Reset()
			s.logger.Debug("manual refresh, polling immediately")
		}

		result := s.poll(ctx)

		// a result arriving after Stop must not reach consumers
		if ctx.Err() != nil {
			return
		}

		select {
		case s.results <- result:
		case <-ctx.Done():
			return
		}

		delay := s.backoff.Next(!result.Failed())
		if result.Failed() {
			s.logger.Debug("poll failed, backing off",
				"error", result.Error,
				"status_code", result.StatusCode,
				"next_delay", delay.String(),
			)
		}
		timer.Reset(delay)
	}
}

// poll issues one request against the health endpoint.
func (s *Scheduler) poll(ctx context.Context) Result {
	resp := s.client.Do(ctx, s.cfg.Method, s.cfg.URL, s.cfg.Headers, nil, s.cfg.Timeout)
	return Result{Response: resp, CheckedAt: time.Now()}
}

// Refresh requests an immediate poll, pre-empting the pending timer and
// resetting the backoff delay to the base interval.
//
// Refresh is safe to call concurrently from multiple consumers:
// simultaneous calls collapse into a single immediate poll. Calling
// Refresh on a stopped scheduler is a no-op.
func (s *Scheduler) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
		// a refresh is already pending; collapse
	}
}

// Stop halts the scheduler and waits for the loop goroutine to exit.
//
// Stop cancels the pending timer synchronously: no poll fires after Stop
// returns, and the result of any poll that was in flight is discarded.
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// release pooled connections once the loop is down
	s.client.Close()

	// ensure the channel is closed even if Start was never called
	s.closeOnce.Do(func() { close(s.results) })
}
