package facts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// Repository implements contracts.FactStore on PostgreSQL. Fact rows
// upsert on the (date_key, time_key, price_area_key) natural key, so
// re-running a window replaces prior values instead of duplicating.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a fact repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertCO2Facts writes hourly CO2 intensity rows.
func (r *Repository) UpsertCO2Facts(ctx context.Context, facts []contracts.CO2Fact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO core.fact_co2_emissions (
			date_key, time_key, price_area_key,
			co2_emission_g_kwh, sample_count, suspect, loaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (date_key, time_key, price_area_key) DO UPDATE SET
			co2_emission_g_kwh = EXCLUDED.co2_emission_g_kwh,
			sample_count = EXCLUDED.sample_count,
			suspect = EXCLUDED.suspect,
			loaded_at = NOW()
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range facts {
		if _, err := tx.Exec(ctx, query,
			f.DateKey, f.TimeKey, f.PriceAreaKey,
			f.CO2GramsPerKWh, f.SampleCount, f.Suspect,
		); err != nil {
			return 0, fmt.Errorf("upsert co2 fact (%d,%d,%d): %w",
				f.DateKey, f.TimeKey, f.PriceAreaKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(facts), nil
}

// UpsertProductionFacts writes hourly production rows.
func (r *Repository) UpsertProductionFacts(ctx context.Context, facts []contracts.ProductionFact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO core.fact_energy_production (
			date_key, time_key, price_area_key,
			offshore_wind_mwh, onshore_wind_mwh, solar_mwh, hydro_mwh,
			conventional_mwh, total_production_mwh, total_renewable_mwh,
			renewable_percentage, wind_percentage, solar_percentage,
			gross_consumption_mwh, loaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (date_key, time_key, price_area_key) DO UPDATE SET
			offshore_wind_mwh = EXCLUDED.offshore_wind_mwh,
			onshore_wind_mwh = EXCLUDED.onshore_wind_mwh,
			solar_mwh = EXCLUDED.solar_mwh,
			hydro_mwh = EXCLUDED.hydro_mwh,
			conventional_mwh = EXCLUDED.conventional_mwh,
			total_production_mwh = EXCLUDED.total_production_mwh,
			total_renewable_mwh = EXCLUDED.total_renewable_mwh,
			renewable_percentage = EXCLUDED.renewable_percentage,
			wind_percentage = EXCLUDED.wind_percentage,
			solar_percentage = EXCLUDED.solar_percentage,
			gross_consumption_mwh = EXCLUDED.gross_consumption_mwh,
			loaded_at = NOW()
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range facts {
		if _, err := tx.Exec(ctx, query,
			f.DateKey, f.TimeKey, f.PriceAreaKey,
			f.OffshoreWindMWh, f.OnshoreWindMWh, f.SolarMWh, f.HydroMWh,
			f.ConventionalMWh, f.TotalProductionMWh, f.TotalRenewableMWh,
			f.RenewablePercentage, f.WindPercentage, f.SolarPercentage,
			f.GrossConsumptionMWh,
		); err != nil {
			return 0, fmt.Errorf("upsert production fact (%d,%d,%d): %w",
				f.DateKey, f.TimeKey, f.PriceAreaKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(facts), nil
}

// UpsertPriceFacts writes hourly spot price rows.
func (r *Repository) UpsertPriceFacts(ctx context.Context, facts []contracts.PriceFact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO core.fact_electricity_prices (
			date_key, time_key, price_area_key,
			spot_price_dkk, spot_price_eur,
			is_negative_price, is_price_spike, price_volatility, loaded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (date_key, time_key, price_area_key) DO UPDATE SET
			spot_price_dkk = EXCLUDED.spot_price_dkk,
			spot_price_eur = EXCLUDED.spot_price_eur,
			is_negative_price = EXCLUDED.is_negative_price,
			is_price_spike = EXCLUDED.is_price_spike,
			price_volatility = EXCLUDED.price_volatility,
			loaded_at = NOW()
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range facts {
		if _, err := tx.Exec(ctx, query,
			f.DateKey, f.TimeKey, f.PriceAreaKey,
			f.SpotPriceDKK, f.SpotPriceEUR,
			f.IsNegativePrice, f.IsPriceSpike, f.PriceVolatility,
		); err != nil {
			return 0, fmt.Errorf("upsert price fact (%d,%d,%d): %w",
				f.DateKey, f.TimeKey, f.PriceAreaKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return len(facts), nil
}
