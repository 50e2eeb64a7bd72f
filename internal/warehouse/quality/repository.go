package quality

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository executes quality checks on PostgreSQL. Read-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a quality repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountViolations runs one check's counting query.
func (r *Repository) CountViolations(ctx context.Context, check Check) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, check.Query, check.Args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("run check %s: %w", check.Name, err)
	}
	return count, nil
}
