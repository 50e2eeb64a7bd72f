package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline over a date window",
	Long: `Runs the complete batch pipeline for a window:
dimensions, per-dataset ingest, conformance, hourly aggregation and the
quality battery. Safe to re-run over any window; facts upsert by
natural key.

Example:
  go run ./cmd/energydwh run --from 2024-06-01 --to 2024-06-08
  go run ./cmd/energydwh run --from 2024-06-01 --datasets co2,prices`,
	RunE: runPipeline,
}

var (
	runFrom     string
	runTo       string
	runDatasets []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFrom, "from", "", "window start date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runTo, "to", "", "window end date, exclusive (default: from + 1 day)")
	runCmd.Flags().StringSliceVar(&runDatasets, "datasets", nil, "datasets to ingest (co2, production, prices; default all)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	window, err := parseWindowFlags(runFrom, runTo)
	if err != nil {
		return err
	}

	var datasets []contracts.Dataset
	for _, name := range runDatasets {
		ds, err := contracts.ParseDataset(name)
		if err != nil {
			return err
		}
		datasets = append(datasets, ds)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("=== energydwh pipeline run %s ===\n", window)

	summary, err := a.runner.Run(context.Background(), window, datasets)
	if err != nil {
		return err
	}

	printSummary(summary)

	if !summary.Succeeded() {
		return fmt.Errorf("run finished degraded")
	}
	return nil
}

func printSummary(s *contracts.RunSummary) {
	fmt.Printf("\nWindow:   %s\n", s.Window)
	fmt.Printf("Duration: %s\n", s.Duration().Round(fmtRound))

	fmt.Println("\nIngest:")
	for _, ing := range s.Ingest {
		state := "ok"
		if ing.Failed {
			state = "FAILED: " + ing.Error
		}
		fmt.Printf("  %-34s fetched=%-6d new=%-6d dup=%-6d %s\n",
			ing.Dataset, ing.Fetched, ing.Persisted, ing.Skipped, state)
	}

	fmt.Println("\nConform:")
	for _, c := range s.Conform {
		fmt.Printf("  %-34s in=%-6d out=%-6d dropped=%-5d suspect=%d\n",
			c.Dataset, c.Input, c.Conformed, c.Dropped(), c.Suspect)
	}

	fmt.Println("\nAggregate:")
	fmt.Printf("  co2 hour buckets: %d\n", s.Aggregate.CO2HourBuckets)
	fmt.Printf("  join gaps:        %d\n", s.Aggregate.JoinGaps)
	fmt.Printf("  fact rows:        %d\n", s.Aggregate.FactRows)
	fmt.Printf("  facts upserted:   %d\n", s.Aggregate.FactsUpserted)

	if s.Quality != nil {
		fmt.Println("\nQuality:")
		if s.Quality.Clean() {
			fmt.Println("  all checks clean")
		} else {
			for name, count := range s.Quality.Violations {
				if count > 0 {
					fmt.Printf("  %-30s %d violations\n", name, count)
				}
			}
		}
	}

	if len(s.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range s.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}
