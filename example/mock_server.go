package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockBackend simulates a search backend that drifts between readiness
// states over time.
type mockBackend struct {
	mu           sync.Mutex
	statusIdx    int
	nextChangeAt time.Time
}

var mockStatuses = []string{"ready", "degraded", "not_ready"}

// StartMockBackend runs a mock backend with a readiness endpoint plus a
// couple of API endpoints for batch runs. The reported status cycles
// every 20-60 seconds. Call this in a goroutine before creating the
// monitor.
func StartMockBackend(addr string) {
	b := &mockBackend{
		nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health/ready", b.handleReadiness)
	mux.HandleFunc("/api/v2/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"1.0.17"`))
	})
	mux.HandleFunc("/api/v2/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int64{
			"nanosecond heartbeat": time.Now().UnixNano(),
		})
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock backend error", "error", err)
	}
}

func (b *mockBackend) handleReadiness(w http.ResponseWriter, r *http.Request) {
	// simulate small latency variance
	time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)

	b.mu.Lock()
	if time.Now().After(b.nextChangeAt) {
		oldStatus := mockStatuses[b.statusIdx]
		b.statusIdx = (b.statusIdx + 1) % len(mockStatuses)
		b.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
		slog.Info("status change", "from", oldStatus, "to", mockStatuses[b.statusIdx])
	}
	status := mockStatuses[b.statusIdx]
	b.mu.Unlock()

	checkStatus := "healthy"
	if status != "ready" {
		checkStatus = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": map[string]any{
			"chromadb": map[string]any{
				"status":        checkStatus,
				"response_time": float64(rand.Intn(50)) / 1000,
			},
			"embedding-model": map[string]any{
				"status": checkStatus,
			},
		},
	})
}
