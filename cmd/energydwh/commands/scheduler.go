package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nordwatt/energydwh/internal/scheduler"
	"github.com/nordwatt/energydwh/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the nightly pipeline on a schedule",
	Long: `Starts the scheduler and keeps running until interrupted. The
nightly job re-covers a trailing window so late upstream corrections
are picked up; schedule comes from ETL_SCHEDULE.

Example:
  go run ./cmd/energydwh scheduler
  go run ./cmd/energydwh scheduler --now`,
	RunE: runScheduler,
}

var schedulerNow bool

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().BoolVar(&schedulerNow, "now", false, "also trigger the pipeline job immediately")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.log)

	job := jobs.NewETLRunJob(a.runner, a.cfg, a.log)
	if err := sched.AddJob(job); err != nil {
		return fmt.Errorf("add job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	if schedulerNow {
		if err := sched.RunJob(job.Name()); err != nil {
			return fmt.Errorf("trigger job: %w", err)
		}
	}

	fmt.Printf("scheduler running, %s on %q\n", job.Name(), job.Schedule())
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
