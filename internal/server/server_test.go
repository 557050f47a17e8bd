package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/beaconhq/beacon/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readySnapshot() store.Snapshot {
	return store.Snapshot{
		Status: "ready",
		Checks: map[string]store.Check{
			"chromadb": {Status: "healthy", ResponseTime: 0.02},
		},
		CapturedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"assets/index.html": &fstest.MapFile{
			Data: []byte("<title>{{.Title}}</title><h1>{{.Title}}</h1>"),
		},
	}
}

// --- Tests ---

func TestHandleHealth(t *testing.T) {
	st := store.NewHealthStore()
	st.SetSnapshot(readySnapshot())

	srv := NewServer(st, func() {}, 0, nil, "", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var state store.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !state.Ready {
		t.Error("ready = false for a ready snapshot")
	}
	if state.Snapshot == nil || state.Snapshot.Checks["chromadb"].Status != "healthy" {
		t.Errorf("snapshot not round-tripped: %+v", state.Snapshot)
	}
}

func TestHandleHealth_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, nil, "", testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	rec := httptest.NewRecorder()

	srv.handleHealth(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleRefresh(t *testing.T) {
	called := 0
	srv := NewServer(store.NewHealthStore(), func() { called++ }, 0, nil, "", testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()

	srv.handleRefresh(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if called != 1 {
		t.Errorf("refresh called %d times, want 1", called)
	}
}

func TestHandleRefresh_MethodNotAllowed(t *testing.T) {
	called := 0
	srv := NewServer(store.NewHealthStore(), func() { called++ }, 0, nil, "", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/refresh", nil)
	rec := httptest.NewRecorder()

	srv.handleRefresh(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if called != 0 {
		t.Error("refresh called on a GET request")
	}
}

func TestHandleDashboard_TitleSubstitution(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, testAssets(), "My Backend", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	srv.handleDashboard(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "<title>My Backend</title>") {
		t.Errorf("title not substituted, got: %s", body)
	}
	if strings.Contains(body, titlePlaceholder) {
		t.Error("placeholder left in rendered page")
	}
}

func TestHandleDashboard_DefaultTitle(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, testAssets(), "", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	srv.handleDashboard(rec, req)

	if !strings.Contains(rec.Body.String(), defaultTitle) {
		t.Errorf("default title missing, got: %s", rec.Body.String())
	}
}

func TestHandleDashboard_TitleEscaped(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, testAssets(), `<script>alert("xss")</script>`, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	srv.handleDashboard(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("title not escaped: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("escaped title missing: %s", body)
	}
}

func TestHandleDashboard_NotFound(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, testAssets(), "", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	srv.handleDashboard(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSSE_SendsCurrentStateFirst(t *testing.T) {
	st := store.NewHealthStore()
	st.SetSnapshot(readySnapshot())

	srv := NewServer(st, func() {}, 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "chromadb") {
		t.Errorf("initial state not sent, got: %s", body)
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	st := store.NewHealthStore()
	srv := NewServer(st, func() {}, 0, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// give handler time to subscribe
	time.Sleep(50 * time.Millisecond)

	snap := readySnapshot()
	snap.Checks["search-index"] = store.Check{Status: "healthy"}
	st.SetSnapshot(snap)

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	if !strings.Contains(rec.Body.String(), "search-index") {
		t.Errorf("streamed update missing, got: %s", rec.Body.String())
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after client disconnect")
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}

	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(store.NewHealthStore(), func() {}, 0, nil, "", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	w := &nonFlushWriter{header: make(http.Header)}

	srv.handleSSE(w, req)

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.statusCode = statusCode
}

func TestHandleSSE_JSONFormat(t *testing.T) {
	st := store.NewHealthStore()
	st.SetSnapshot(readySnapshot())

	srv := NewServer(st, func() {}, 0, nil, "", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	// extract JSON from "data: {...}\n\n" format
	var jsonData string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "data: ") {
			jsonData = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if jsonData == "" {
		t.Fatalf("no data frame in SSE body: %s", rec.Body.String())
	}

	var state store.State
	if err := json.Unmarshal([]byte(jsonData), &state); err != nil {
		t.Fatalf("SSE frame is not valid JSON: %v", err)
	}
	if !state.Ready {
		t.Error("ready = false in SSE frame for a ready snapshot")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	st := store.NewHealthStore()
	st.SetSnapshot(readySnapshot())

	srv := NewServer(st, func() {}, 0, testAssets(), "Test", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// port 0 picks a free port; Start fails only on bind errors
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cancel()
	time.Sleep(100 * time.Millisecond)
}
