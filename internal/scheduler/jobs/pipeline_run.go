package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/pipeline"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// PipelineRunJob runs the full signal pipeline on the configured
// schedule. A partially completed run is a normal outcome for the
// scheduler; only a run where nothing completed counts as a failure.
type PipelineRunJob struct {
	orchestrator *pipeline.Orchestrator
	schedule     string
	logger       *logger.Logger
}

// NewPipelineRunJob creates a new scheduled pipeline run job
func NewPipelineRunJob(orch *pipeline.Orchestrator, cfg *strategyconfig.Config, log *logger.Logger) *PipelineRunJob {
	return &PipelineRunJob{
		orchestrator: orch,
		schedule:     cfg.Pipeline.Schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *PipelineRunJob) Name() string {
	return "pipeline_run"
}

// Schedule returns the configured cron schedule
func (j *PipelineRunJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run
func (j *PipelineRunJob) Run(ctx context.Context) error {
	runID := pipeline.NewRunID(time.Now())

	j.logger.WithField("run_id", runID).Info("Starting scheduled pipeline run")

	report, err := j.orchestrator.Run(ctx, runID)
	if err != nil {
		return fmt.Errorf("pipeline run %s: %w", runID, err)
	}

	if report.ExitCode() == 1 {
		return fmt.Errorf("pipeline run %s: no company completed", runID)
	}

	for _, company := range report.Companies {
		if company.State != contracts.RunCompleted {
			j.logger.WithFields(map[string]interface{}{
				"run_id":  runID,
				"company": company.Company,
				"state":   company.State,
			}).Warn("Company did not fully complete")
		}
	}

	return nil
}
