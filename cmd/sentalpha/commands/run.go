package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the signal pipeline over the configured universe",
	Long: `Runs the full pipeline for every company in the strategy universe:
sentiment history, quarter-over-quarter deltas, signal classification,
price fetch, alpha measurement and persistence.

Exit codes:
  0 - every company completed
  2 - at least one company only partially completed
  1 - nothing completed, or the configuration was invalid

Example:
  go run ./cmd/sentalpha run
  go run ./cmd/sentalpha run --strategy configs/strategy.yaml
  go run ./cmd/sentalpha run --run-id run_20260830T000000Z`,
	RunE: runPipeline,
}

var runID string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default derived from current time)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sentalpha pipeline run ===")

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.orchestrator()
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	if runID == "" {
		runID = pipeline.NewRunID(time.Now())
	}

	// Ctrl+C cancels cooperatively between stages
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := orch.Run(ctx, runID)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	printRunReport(report)

	a.Close()
	os.Exit(report.ExitCode())
	return nil
}

// printRunReport prints the per-company outcome table
func printRunReport(report *contracts.RunReport) {
	fmt.Printf("\nRun %s finished in %s\n\n", report.RunID, report.Duration.Round(time.Millisecond))

	for _, company := range report.Companies {
		fmt.Printf("  %-24s %-20s ok=%d quarters=%d missing=%d\n",
			company.Company, company.State, company.OKCount(),
			len(company.Quarters), len(company.Missing))

		if company.Error != "" {
			fmt.Printf("    error: %s\n", company.Error)
		}
		for _, q := range company.Quarters {
			if !q.OK {
				fmt.Printf("    %s @%s: %s\n", q.Quarter, q.Stage, q.Reason)
			}
		}
	}

	fmt.Printf("\nExit code: %d\n", report.ExitCode())
}
