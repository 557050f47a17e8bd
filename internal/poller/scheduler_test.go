package poller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a scheduler config pointed at url with short timings.
func testConfig(url string, interval, maxBackoff time.Duration) Config {
	return Config{
		URL:        url,
		Timeout:    time.Second,
		Interval:   interval,
		MaxBackoff: maxBackoff,
	}
}

// healthyServer returns a test server that always answers ready.
func healthyServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}))
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and is a safe no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := NewScheduler(testConfig("http://example.com", time.Minute, time.Hour), testLogger())

	// this must not panic
	scheduler.Stop()
}

// TestScheduler_StopTwice verifies that Stop() is idempotent and can be
// called multiple times without panic or deadlock.
func TestScheduler_StopTwice(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, time.Minute, time.Hour), testLogger())
	scheduler.Start(context.Background())

	go func() {
		for range scheduler.Results() {
		}
	}()

	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_StartTwice verifies that Start() is idempotent and calling
// it multiple times does not spawn multiple polling loops.
func TestScheduler_StartTwice(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, time.Minute, time.Hour), testLogger())

	scheduler.Start(context.Background())
	scheduler.Start(context.Background()) // second call should be no-op

	go func() {
		for range scheduler.Results() {
		}
	}()

	scheduler.Stop()
}

// TestScheduler_ImmediateFirstPoll verifies polling begins with no initial
// delay: even with an hour-long interval the first result arrives at once.
func TestScheduler_ImmediateFirstPoll(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, time.Hour, time.Hour), testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	select {
	case result := <-scheduler.Results():
		if result.Failed() {
			t.Errorf("first poll failed: %v (status %d)", result.Error, result.StatusCode)
		}
		if result.CheckedAt.IsZero() {
			t.Error("result missing CheckedAt timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no immediate poll within 2s despite 1h interval")
	}
}

// TestScheduler_PollsAtBaseIntervalOnSuccess verifies the loop keeps
// polling at the base interval while the backend answers.
func TestScheduler_PollsAtBaseIntervalOnSuccess(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, 30*time.Millisecond, time.Second), testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	deadline := time.After(2 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case result := <-scheduler.Results():
			if result.Failed() {
				t.Fatalf("poll %d failed: %v", i, result.Error)
			}
		case <-deadline:
			t.Fatalf("only %d polls within 2s at a 30ms interval", i)
		}
	}
}

// TestScheduler_BacksOffOnFailure verifies the delay grows after failures:
// with base 40ms the gap between the first and second failed poll must be
// at least one doubled interval.
func TestScheduler_BacksOffOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, 40*time.Millisecond, time.Second), testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	var first, second time.Time
	deadline := time.After(3 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case result := <-scheduler.Results():
			if !result.Failed() {
				t.Fatal("expected a failed poll against a 503 server")
			}
			if i == 0 {
				first = time.Now()
			} else {
				second = time.Now()
			}
		case <-deadline:
			t.Fatal("timed out waiting for failed polls")
		}
	}

	// after one failure the next delay is min(40*2, 1000) = 80ms;
	// allow generous scheduling tolerance below it
	if gap := second.Sub(first); gap < 60*time.Millisecond {
		t.Errorf("second poll after %s, want >= 80ms backoff (60ms with tolerance)", gap)
	}
}

// TestScheduler_RefreshPreemptsPendingTimer verifies a manual refresh
// cancels the pending wait and polls immediately, even when the scheduled
// delay is far in the future.
func TestScheduler_RefreshPreemptsPendingTimer(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, time.Hour, time.Hour), testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	// consume the immediate first poll
	select {
	case <-scheduler.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("no first poll")
	}

	// the next timer is armed for an hour out; refresh must pre-empt it
	scheduler.Refresh()

	select {
	case result := <-scheduler.Results():
		if result.Failed() {
			t.Errorf("refresh poll failed: %v", result.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not trigger an immediate poll")
	}
}

// TestScheduler_RefreshCollapses verifies that simultaneous refresh calls
// collapse into a single immediate poll rather than queueing one each.
func TestScheduler_RefreshCollapses(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, time.Hour, time.Hour), testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	select {
	case <-scheduler.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("no first poll")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Refresh()
		}()
	}
	wg.Wait()

	// at least one refresh poll fires...
	select {
	case <-scheduler.Results():
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not trigger a poll")
	}

	// ...but nowhere near one per call
	extra := 0
	drain := time.After(300 * time.Millisecond)
	for {
		select {
		case <-scheduler.Results():
			extra++
		case <-drain:
			if extra >= 9 {
				t.Errorf("10 concurrent refreshes produced %d extra polls, want them collapsed", extra+1)
			}
			return
		}
	}
}

// TestScheduler_StopDiscardsInFlightResult verifies that stopping while a
// poll is in flight never emits that poll's result: the channel closes
// without it.
func TestScheduler_StopDiscardsInFlightResult(t *testing.T) {
	entered := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	scheduler := NewScheduler(testConfig(server.URL, time.Minute, time.Hour), testLogger())
	scheduler.Start(context.Background())

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("poll never reached the server")
	}

	// the first poll is now in flight; stop must discard its result
	scheduler.Stop()

	select {
	case result, ok := <-scheduler.Results():
		if ok {
			t.Errorf("in-flight result emitted after Stop: %+v", result)
		}
	case <-time.After(time.Second):
		t.Error("results channel not closed after Stop")
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and
// Stop() concurrently does not cause a race condition or panic.
// Run with: go test -race ./internal/poller/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	server := healthyServer()
	defer server.Close()

	for i := 0; i < 50; i++ {
		scheduler := NewScheduler(testConfig(server.URL, time.Minute, time.Hour), testLogger())

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()

		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()

		wg.Wait()
		scheduler.Stop()

		// drain any remaining results
		for range scheduler.Results() {
		}
	}
}
