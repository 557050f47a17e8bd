package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beaconhq/beacon/config"
)

// batchCmd runs the configured batch request suite.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the batch request suite",
	Long: `Execute the configured suite of requests against the backend,
strictly one at a time, and print the per-call outcomes.

A failing call does not abort the remaining sequence.

Exit codes:
  0 - Every call returned a 2xx status
  1 - At least one call failed

Example:
  beacon batch -c config.yaml`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = batchCmd.MarkFlagRequired("config")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Suite) == 0 {
		return fmt.Errorf("no suite requests configured")
	}

	runner, reqs, err := config.BuildBatch(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create batch runner: %w", err)
	}
	defer runner.Close()

	report := runner.Run(cmd.Context(), reqs)

	fmt.Printf("run %s (%d calls)\n", report.RunID, len(report.Results))
	for _, res := range report.Results {
		mark := "ok  "
		if !res.OK {
			mark = "FAIL"
		}
		line := fmt.Sprintf("%s  %-40s %3d  %6dms", mark, res.Name, res.StatusCode, res.Elapsed.Milliseconds())
		if res.Error != "" {
			line += "  " + res.Error
		}
		fmt.Println(line)
	}
	fmt.Printf("passed %d, failed %d, total %s\n", report.Passed, report.Failed, report.Elapsed)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d calls failed", report.Failed, len(report.Results))
	}
	return nil
}
