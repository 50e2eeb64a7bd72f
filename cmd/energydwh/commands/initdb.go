package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// initdbCmd represents the initdb command
var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Apply the warehouse schema",
	Long: `Applies migrations/schema.sql to the configured database. All
statements are IF NOT EXISTS; running against an initialized database
is a no-op.

Example:
  go run ./cmd/energydwh initdb
  go run ./cmd/energydwh initdb --schema ./migrations/schema.sql`,
	RunE: runInitDB,
}

var schemaPath string

func init() {
	rootCmd.AddCommand(initdbCmd)

	initdbCmd.Flags().StringVar(&schemaPath, "schema", "migrations/schema.sql", "path to the schema file")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.db.Pool.Exec(context.Background(), string(schema)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	fmt.Println("schema applied")
	return nil
}
