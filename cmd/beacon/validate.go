package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beaconhq/beacon/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a beacon configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  beacon validate -c config.yaml
  beacon validate --config /etc/beacon/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:         %d\n", cfg.Port)
	fmt.Printf("  Backend:      %s%s\n", cfg.Backend.URL, cfg.Backend.HealthPath)
	fmt.Printf("  Interval:     %s\n", cfg.Poll.Interval.Duration())
	fmt.Printf("  Max backoff:  %s\n", cfg.Poll.MaxBackoff.Duration())
	fmt.Printf("  Suite:        %d requests\n", len(cfg.Suite))

	return nil
}
