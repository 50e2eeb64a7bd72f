package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run the quality battery over loaded facts",
	Long: `Runs the post-load quality checks for a window: null counts,
range checks and referential integrity. Advisory only; violations are
reported, never fatal. Use --strict to exit non-zero on violations for
alerting pipelines.

Example:
  go run ./cmd/energydwh gate --from 2024-06-01 --to 2024-06-08
  go run ./cmd/energydwh gate --from 2024-06-01 --strict`,
	RunE: runGate,
}

var (
	gateFrom   string
	gateTo     string
	gateStrict bool
)

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().StringVar(&gateFrom, "from", "", "window start date (YYYY-MM-DD)")
	gateCmd.Flags().StringVar(&gateTo, "to", "", "window end date, exclusive (default: from + 1 day)")
	gateCmd.Flags().BoolVar(&gateStrict, "strict", false, "exit non-zero when violations are found")
}

func runGate(cmd *cobra.Command, args []string) error {
	window, err := parseWindowFlags(gateFrom, gateTo)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.gate.RunChecks(context.Background(), window)
	if err != nil {
		return err
	}

	fmt.Printf("=== quality report %s ===\n\n", window)

	names := make([]string, 0, len(report.Violations))
	for name := range report.Violations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("  %-30s %d\n", name, report.Violations[name])
	}

	fmt.Printf("\ntotal violations: %d\n", report.TotalViolations())

	if gateStrict && !report.Clean() {
		return fmt.Errorf("quality battery found %d violations", report.TotalViolations())
	}
	return nil
}
