package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/internal/warehouse/pipeline"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// trailingDays is how far back the nightly run reaches. Upstream
// datasets settle late, so re-covering recent days picks up corrections;
// the upsert discipline makes the overlap free.
const trailingDays = 3

// ETLRunJob runs the full pipeline over a trailing window every night.
type ETLRunJob struct {
	runner *pipeline.Runner
	config *config.Config
	logger *logger.Logger
}

// NewETLRunJob creates the nightly pipeline job.
func NewETLRunJob(runner *pipeline.Runner, cfg *config.Config, log *logger.Logger) *ETLRunJob {
	return &ETLRunJob{
		runner: runner,
		config: cfg,
		logger: log,
	}
}

// Name returns the job name.
func (j *ETLRunJob) Name() string {
	return "etl_run"
}

// Schedule returns the configured cron expression.
func (j *ETLRunJob) Schedule() string {
	return j.config.ETL.Schedule
}

// Run executes the pipeline for the trailing window, all datasets.
func (j *ETLRunJob) Run(ctx context.Context) error {
	end := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	window := contracts.DateWindow{
		Start: end.AddDate(0, 0, -trailingDays),
		End:   end,
	}

	j.logger.WithField("window", window.String()).Info("Starting scheduled pipeline run")

	summary, err := j.runner.Run(ctx, window, nil)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	if !summary.Succeeded() {
		return fmt.Errorf("pipeline run degraded: %v", summary.Errors)
	}

	return nil
}
