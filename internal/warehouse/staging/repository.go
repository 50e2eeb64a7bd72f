package staging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// Repository implements contracts.StagingStore on PostgreSQL. Each raw
// table carries a unique (timestamp, price_area) natural key; inserts
// use ON CONFLICT DO NOTHING so staging stays append-only under re-runs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a staging repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveCO2 stages 5-minute CO2 samples, skipping duplicates.
func (r *Repository) SaveCO2(ctx context.Context, records []contracts.RawCO2Record) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	query := `
		INSERT INTO raw.co2_emissions (
			minutes5_utc, minutes5_dk, price_area, co2_emission
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (minutes5_utc, price_area) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	persisted := 0
	for _, rec := range records {
		tag, err := tx.Exec(ctx, query,
			rec.TimestampUTC, rec.TimestampLocal, rec.PriceArea, rec.CO2Emission,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert co2 sample %s/%s: %w",
				rec.TimestampUTC.Format("2006-01-02T15:04"), rec.PriceArea, err)
		}
		persisted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit transaction: %w", err)
	}

	return persisted, len(records) - persisted, nil
}

// SaveProduction stages hourly production settlements, skipping duplicates.
func (r *Repository) SaveProduction(ctx context.Context, records []contracts.RawProductionRecord) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	query := `
		INSERT INTO raw.energy_production (
			hour_utc, hour_dk, price_area,
			offshore_wind_lt_100mw, offshore_wind_ge_100mw,
			onshore_wind_lt_50kw, onshore_wind_ge_50kw,
			solar_lt_10kw, solar_ge_10_lt_40kw, solar_ge_40kw,
			hydro, central_power, local_power, gross_consumption
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (hour_utc, price_area) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	persisted := 0
	for _, rec := range records {
		tag, err := tx.Exec(ctx, query,
			rec.TimestampUTC, rec.TimestampLocal, rec.PriceArea,
			rec.OffshoreWindLt100MW, rec.OffshoreWindGe100MW,
			rec.OnshoreWindLt50kW, rec.OnshoreWindGe50kW,
			rec.SolarLt10kW, rec.SolarGe10Lt40kW, rec.SolarGe40kW,
			rec.Hydro, rec.CentralPower, rec.LocalPower, rec.GrossConsumption,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert production hour %s/%s: %w",
				rec.TimestampUTC.Format("2006-01-02T15:04"), rec.PriceArea, err)
		}
		persisted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit transaction: %w", err)
	}

	return persisted, len(records) - persisted, nil
}

// SavePrices stages hourly spot prices, skipping duplicates.
func (r *Repository) SavePrices(ctx context.Context, records []contracts.RawPriceRecord) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	query := `
		INSERT INTO raw.electricity_prices (
			hour_utc, hour_dk, price_area, spot_price_dkk, spot_price_eur
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hour_utc, price_area) DO NOTHING
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	persisted := 0
	for _, rec := range records {
		tag, err := tx.Exec(ctx, query,
			rec.TimestampUTC, rec.TimestampLocal, rec.PriceArea,
			rec.SpotPriceDKK, rec.SpotPriceEUR,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert price hour %s/%s: %w",
				rec.TimestampUTC.Format("2006-01-02T15:04"), rec.PriceArea, err)
		}
		persisted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit transaction: %w", err)
	}

	return persisted, len(records) - persisted, nil
}

// LoadCO2 reads staged 5-minute samples whose local date falls inside
// the half-open window.
func (r *Repository) LoadCO2(ctx context.Context, window contracts.DateWindow) ([]contracts.RawCO2Record, error) {
	query := `
		SELECT minutes5_utc, minutes5_dk, price_area, co2_emission
		FROM raw.co2_emissions
		WHERE minutes5_dk >= $1 AND minutes5_dk < $2
		ORDER BY minutes5_dk, price_area
	`

	rows, err := r.pool.Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query staged co2: %w", err)
	}
	defer rows.Close()

	var records []contracts.RawCO2Record
	for rows.Next() {
		var rec contracts.RawCO2Record
		if err := rows.Scan(&rec.TimestampUTC, &rec.TimestampLocal, &rec.PriceArea, &rec.CO2Emission); err != nil {
			return nil, fmt.Errorf("scan staged co2: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LoadProduction reads staged hourly production settlements in the window.
func (r *Repository) LoadProduction(ctx context.Context, window contracts.DateWindow) ([]contracts.RawProductionRecord, error) {
	query := `
		SELECT
			hour_utc, hour_dk, price_area,
			offshore_wind_lt_100mw, offshore_wind_ge_100mw,
			onshore_wind_lt_50kw, onshore_wind_ge_50kw,
			solar_lt_10kw, solar_ge_10_lt_40kw, solar_ge_40kw,
			hydro, central_power, local_power, gross_consumption
		FROM raw.energy_production
		WHERE hour_dk >= $1 AND hour_dk < $2
		ORDER BY hour_dk, price_area
	`

	rows, err := r.pool.Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query staged production: %w", err)
	}
	defer rows.Close()

	var records []contracts.RawProductionRecord
	for rows.Next() {
		var rec contracts.RawProductionRecord
		if err := rows.Scan(
			&rec.TimestampUTC, &rec.TimestampLocal, &rec.PriceArea,
			&rec.OffshoreWindLt100MW, &rec.OffshoreWindGe100MW,
			&rec.OnshoreWindLt50kW, &rec.OnshoreWindGe50kW,
			&rec.SolarLt10kW, &rec.SolarGe10Lt40kW, &rec.SolarGe40kW,
			&rec.Hydro, &rec.CentralPower, &rec.LocalPower, &rec.GrossConsumption,
		); err != nil {
			return nil, fmt.Errorf("scan staged production: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LoadPrices reads staged hourly spot prices in the window.
func (r *Repository) LoadPrices(ctx context.Context, window contracts.DateWindow) ([]contracts.RawPriceRecord, error) {
	query := `
		SELECT hour_utc, hour_dk, price_area, spot_price_dkk, spot_price_eur
		FROM raw.electricity_prices
		WHERE hour_dk >= $1 AND hour_dk < $2
		ORDER BY hour_dk, price_area
	`

	rows, err := r.pool.Query(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("query staged prices: %w", err)
	}
	defer rows.Close()

	var records []contracts.RawPriceRecord
	for rows.Next() {
		var rec contracts.RawPriceRecord
		if err := rows.Scan(&rec.TimestampUTC, &rec.TimestampLocal, &rec.PriceArea,
			&rec.SpotPriceDKK, &rec.SpotPriceEUR); err != nil {
			return nil, fmt.Errorf("scan staged prices: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
