package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// Repository implements contracts.RunStore on PostgreSQL. The run log
// is append-only; summaries serialize to JSONB so the schema does not
// chase the summary shape.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a run-log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun appends one run summary.
func (r *Repository) SaveRun(ctx context.Context, summary *contracts.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	query := `
		INSERT INTO etl.run_log (
			window_start, window_end, started_at, finished_at, succeeded, summary
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.pool.Exec(ctx, query,
		summary.Window.Start, summary.Window.End,
		summary.StartedAt, summary.FinishedAt,
		summary.Succeeded(), payload,
	); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}

	return nil
}

// LatestRun returns the most recent run summary, or nil when the log
// is empty.
func (r *Repository) LatestRun(ctx context.Context) (*contracts.RunSummary, error) {
	query := `
		SELECT summary
		FROM etl.run_log
		ORDER BY started_at DESC
		LIMIT 1
	`

	var payload []byte
	if err := r.pool.QueryRow(ctx, query).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	var summary contracts.RunSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal run summary: %w", err)
	}

	return &summary, nil
}
