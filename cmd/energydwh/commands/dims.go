package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// dimsCmd represents the dims command
var dimsCmd = &cobra.Command{
	Use:   "dims",
	Short: "Build or extend the dimension tables",
	Long: `Ensures the date dimension covers the window, the time-of-day
buckets exist for both grains and the static price-area set is loaded.
Idempotent; overlapping windows insert only missing rows.

Example:
  go run ./cmd/energydwh dims --from 2024-01-01 --to 2025-01-01`,
	RunE: runDims,
}

var (
	dimsFrom string
	dimsTo   string
)

func init() {
	rootCmd.AddCommand(dimsCmd)

	dimsCmd.Flags().StringVar(&dimsFrom, "from", "", "date range start (YYYY-MM-DD)")
	dimsCmd.Flags().StringVar(&dimsTo, "to", "", "date range end, exclusive (default: from + 1 day)")
}

func runDims(cmd *cobra.Command, args []string) error {
	window, err := parseWindowFlags(dimsFrom, dimsTo)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	dates, err := a.dims.EnsureDateRange(ctx, window)
	if err != nil {
		return fmt.Errorf("ensure date range: %w", err)
	}

	var buckets int
	for _, grain := range []contracts.Grain{contracts.GrainHour, contracts.GrainFiveMinute} {
		n, err := a.dims.EnsureTimeBuckets(ctx, grain)
		if err != nil {
			return fmt.Errorf("ensure time buckets (%s): %w", grain, err)
		}
		buckets += n
	}

	areas, err := a.dims.EnsurePriceAreas(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure price areas: %w", err)
	}

	fmt.Printf("dates inserted:        %d\n", dates)
	fmt.Printf("time buckets inserted: %d\n", buckets)
	fmt.Printf("price areas upserted:  %d\n", areas)
	return nil
}
