package dimensions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// Repository implements contracts.DimensionStore on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dimension repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureDates inserts missing date rows, returning the number inserted.
func (r *Repository) EnsureDates(ctx context.Context, rows []contracts.DateDim) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO core.dim_date (
			date_key, full_date, year, quarter, month, day, day_of_week, is_weekend
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date_key) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, row := range rows {
		tag, err := tx.Exec(ctx, query,
			row.DateKey, row.Date, row.Year, row.Quarter, row.Month, row.Day, row.DayOfWeek, row.IsWeekend,
		)
		if err != nil {
			return 0, fmt.Errorf("insert date %d: %w", row.DateKey, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return inserted, nil
}

// EnsureTimeBuckets inserts missing time-of-day rows for a grain.
func (r *Repository) EnsureTimeBuckets(ctx context.Context, rows []contracts.TimeDim) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO core.dim_time (
			time_key, grain, hour, minute, is_peak_hour
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (time_key, grain) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, row := range rows {
		tag, err := tx.Exec(ctx, query,
			row.TimeKey, string(row.Grain), row.Hour, row.Minute, row.IsPeakHour,
		)
		if err != nil {
			return 0, fmt.Errorf("insert time bucket %d/%s: %w", row.TimeKey, row.Grain, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return inserted, nil
}

// EnsurePriceAreas upserts the static price-area reference set. Flags
// may change (an area reclassified); codes and keys may not.
func (r *Repository) EnsurePriceAreas(ctx context.Context, rows []contracts.PriceArea) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO core.dim_price_area (
			price_area_key, code, is_danish
		) VALUES ($1, $2, $3)
		ON CONFLICT (price_area_key) DO UPDATE SET
			is_danish = EXCLUDED.is_danish
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		if _, err := tx.Exec(ctx, query, row.Key, row.Code, row.IsDanish); err != nil {
			return 0, fmt.Errorf("upsert price area %s: %w", row.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(rows), nil
}

// PriceAreas returns the full reference set ordered by key.
func (r *Repository) PriceAreas(ctx context.Context) ([]contracts.PriceArea, error) {
	query := `
		SELECT price_area_key, code, is_danish
		FROM core.dim_price_area
		ORDER BY price_area_key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query price areas: %w", err)
	}
	defer rows.Close()

	var areas []contracts.PriceArea
	for rows.Next() {
		var a contracts.PriceArea
		if err := rows.Scan(&a.Key, &a.Code, &a.IsDanish); err != nil {
			return nil, fmt.Errorf("scan price area: %w", err)
		}
		areas = append(areas, a)
	}

	return areas, rows.Err()
}
