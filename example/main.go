package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beaconhq/beacon"
)

func main() {
	// start mock backend (see mock_server.go)
	go StartMockBackend(":9999")
	time.Sleep(100 * time.Millisecond)

	mon, err := beacon.New("http://localhost:9999",
		beacon.WithInterval(5*time.Second),
		beacon.WithMaxBackoff(30*time.Second),
		beacon.WithOnUpdate(func(s beacon.State) {
			if s.Error != "" {
				slog.Warn("backend unreachable", "error", s.Error)
				return
			}
			slog.Info("backend state", "ready", s.Ready, "status", s.Snapshot.Status)
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Beacon Demo                                         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   The mock backend cycles through:                    ║")
	fmt.Println("  ║   ready → degraded → not_ready                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mon.Serve(ctx, 8080, "Beacon Demo"); err != nil {
		slog.Error("beacon error", "error", err)
		os.Exit(1)
	}
}
