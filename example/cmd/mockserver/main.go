// Standalone mock backend for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/beacon serve -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

var statuses = []string{"ready", "degraded", "not_ready"}

func main() {
	fmt.Println("Mock backend starting on :9999")
	fmt.Println("Readiness cycles through: ready → degraded → not_ready")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu           sync.Mutex
		statusIdx    int
		nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)

		mu.Lock()
		if time.Now().After(nextChangeAt) {
			oldStatus := statuses[statusIdx]
			statusIdx = (statusIdx + 1) % len(statuses)
			nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("status change", "from", oldStatus, "to", statuses[statusIdx])
		}
		status := statuses[statusIdx]
		mu.Unlock()

		checkStatus := "healthy"
		if status != "ready" {
			checkStatus = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": status,
			"checks": map[string]any{
				"chromadb":        map[string]any{"status": checkStatus},
				"embedding-model": map[string]any{"status": checkStatus},
			},
		})
	})

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

	if err := http.ListenAndServe(":9999", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
