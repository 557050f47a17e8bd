// Package main is the entry point for the beacon CLI.
//
// Beacon can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	beacon serve -c config.yaml    # Start the dashboard
//	beacon check -c config.yaml    # One-shot readiness check
//	beacon batch -c config.yaml    # Run the batch request suite
//	beacon validate -c config.yaml # Validate configuration
//	beacon version                 # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logFormat is the global --log-format flag value.
var logFormat string

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "An adaptive health monitor and dashboard for a backend service",
	Long: `Beacon polls a backend readiness endpoint on an adaptive schedule,
normalizes whatever payload shape comes back, backs off exponentially
while the backend is unreachable, and serves a live dashboard.

Quick start:
  1. Create a config file (beacon.yaml)
  2. Run: beacon serve -c beacon.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  backend:
    url: http://localhost:9000
    health_path: /api/v1/health/ready
  poll:
    interval: 10s
    max_backoff: 2m`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a logger for CLI use based on the --log-format flag:
// human-readable colorized output by default, JSON for log shippers.
func newLogger() *slog.Logger {
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelInfo,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this beacon binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("beacon %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text or json)")
	rootCmd.AddCommand(versionCmd)
}
