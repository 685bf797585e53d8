package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gudapatin/sentalpha/internal/scheduler"
	"github.com/gudapatin/sentalpha/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the pipeline on the configured schedule",
	Long: `Starts the scheduler daemon. The pipeline run job uses the cron
expression from the strategy file (pipeline.schedule, six fields with
seconds); an empty expression disables scheduling.

Example:
  go run ./cmd/sentalpha scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== sentalpha scheduler ===")

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.strategy.Pipeline.Schedule == "" {
		return fmt.Errorf("pipeline.schedule is empty, nothing to schedule")
	}

	orch, err := a.orchestrator()
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewPipelineRunJob(orch, a.strategy, a.log)); err != nil {
		return fmt.Errorf("add pipeline job: %w", err)
	}

	sched.Start()

	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
