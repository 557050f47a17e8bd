package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/beaconhq/beacon"
	"github.com/beaconhq/beacon/config"
)

// checkCmd performs a one-shot readiness check against the backend.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a one-shot readiness check",
	Long: `Poll the backend readiness endpoint once and print the normalized
health snapshot.

Exit codes:
  0 - Backend reported status "ready"
  1 - Any other status, or the backend was unreachable

Example:
  beacon check -c config.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = checkCmd.MarkFlagRequired("config")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mon, err := config.BuildMonitor(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// attaching starts the loop; the first poll fires immediately
	h := mon.Attach()
	defer h.Close()

	timeout := cfg.Backend.Timeout.Duration() + time.Second
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	state, err := awaitFirstOutcome(ctx, h)
	if err != nil {
		return fmt.Errorf("no poll result within %s", timeout)
	}

	if state.Snapshot == nil {
		return fmt.Errorf("backend unreachable: %s", state.Error)
	}

	snap := state.Snapshot
	fmt.Printf("status: %s\n", snap.Status)
	if snap.Message != "" {
		fmt.Printf("note:   %s\n", snap.Message)
	}

	names := make([]string, 0, len(snap.Checks))
	for name := range snap.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := snap.Checks[name]
		line := fmt.Sprintf("  %-20s %s", name, c.Status)
		if c.Error != "" {
			line += " (" + c.Error + ")"
		}
		fmt.Println(line)
	}

	if !state.Ready {
		return fmt.Errorf("backend is not ready")
	}
	return nil
}

// awaitFirstOutcome waits for the loading phase to end. Polling the state
// rather than subscribing avoids missing an update that lands between
// Attach and Subscribe.
func awaitFirstOutcome(ctx context.Context, h *beacon.Handle) (beacon.State, error) {
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		if state := h.State(); !state.Loading {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return beacon.State{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
