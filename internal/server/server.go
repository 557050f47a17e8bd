package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/beaconhq/beacon/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write
	// operation. This prevents goroutine leaks when clients are slow or
	// disconnected. Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Beacon"

	// titlePlaceholder is the marker in HTML that gets replaced with the
	// actual title.
	titlePlaceholder = "{{.Title}}"
)

// Server handles HTTP requests for the beacon dashboard and API.
//
// Server provides four endpoints:
//   - GET /: Serves the embedded dashboard HTML
//   - GET /api/health: Returns the current shared health state as JSON
//   - GET /api/sse: Server-Sent Events stream of state updates
//   - POST /api/refresh: Triggers an immediate poll, bypassing backoff
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      *store.HealthStore
	refresh    func()
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// refresh is invoked by the POST /api/refresh handler and must be safe
// for concurrent use (the scheduler's Refresh collapses concurrent
// calls). The server is not started until [Server.Start] is called.
func NewServer(st *store.HealthStore, refresh func(), port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		store:   st,
		refresh: refresh,
		port:    port,
		assets:  assets,
		title:   title,
		logger:  logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the
// server is listening. The server runs until the context is cancelled,
// then shuts down gracefully with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/refresh", s.handleRefresh)

	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: mux,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleHealth returns the current shared health state as JSON.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.store.State()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(state); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// handleRefresh feeds a manual refresh back into the poll scheduler.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.refresh()
	w.WriteHeader(http.StatusAccepted)
}

// handleSSE streams health state updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected. Without deadlines, a blocked Fprintf call would
// prevent the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// write deadlines may not be supported by every ResponseWriter impl
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send the current state first so clients render immediately
	if data, err := json.Marshal(s.store.State()); err == nil {
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case state, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(state)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
