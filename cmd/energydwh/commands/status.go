package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health and the latest run",
	Long: `Checks database connectivity and prints the most recent
pipeline run summary.

Example:
  go run ./cmd/energydwh status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("database: unhealthy (%s)\n", health.Error)
		return err
	}

	fmt.Printf("database: healthy (%s, %d/%d conns)\n",
		health.ResponseTime.Round(fmtRound), health.Stats.AcquiredConns, health.Stats.MaxConns)

	summary, err := a.runStore.LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("load latest run: %w", err)
	}
	if summary == nil {
		fmt.Println("runs:     none recorded")
		return nil
	}

	state := "succeeded"
	if !summary.Succeeded() {
		state = "degraded"
	}
	fmt.Printf("last run: %s, window %s, %d fact rows, finished %s\n",
		state, summary.Window, summary.Aggregate.FactRows,
		summary.FinishedAt.Format(time.RFC3339))

	if summary.Quality != nil {
		fmt.Printf("quality:  %d violations\n", summary.Quality.TotalViolations())
	}

	return nil
}
