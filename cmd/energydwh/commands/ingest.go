package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [dataset]",
	Short: "Ingest one dataset's window into raw staging",
	Long: `Fetches a single dataset from Energi Data Service and stages it
raw, skipping records already staged. Does not conform or aggregate;
use 'run' for the full pipeline.

Datasets: co2, production, prices

Example:
  go run ./cmd/energydwh ingest co2 --from 2024-06-01 --to 2024-06-02
  go run ./cmd/energydwh ingest prices --from 2024-06-01`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestFrom string
	ingestTo   string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "window start date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestTo, "to", "", "window end date, exclusive (default: from + 1 day)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dataset, err := contracts.ParseDataset(args[0])
	if err != nil {
		return err
	}

	window, err := parseWindowFlags(ingestFrom, ingestTo)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("=== ingest %s %s ===\n", dataset, window)

	stats, err := a.ingestor.FetchWindow(context.Background(), dataset, window)
	if err != nil {
		return err
	}

	fmt.Printf("\nfetched=%d new=%d duplicates=%d\n", stats.Fetched, stats.Persisted, stats.Skipped)
	return nil
}
