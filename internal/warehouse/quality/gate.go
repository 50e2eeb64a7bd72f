package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Check is one item of the post-load battery: a violation-counting query
// over the loaded facts.
type Check struct {
	Name  string
	Query string
	Args  []interface{}
}

// Runner executes a single check and returns its violation count.
type Runner interface {
	CountViolations(ctx context.Context, check Check) (int, error)
}

// Gate runs the fixed quality battery after a load: null counts, range
// checks and referential integrity. It only reads, and it only reports;
// violations never fail the run.
type Gate struct {
	runner Runner
	etl    config.ETLConfig
	logger *logger.Logger
}

// NewGate creates a quality gate.
func NewGate(runner Runner, etl config.ETLConfig, log *logger.Logger) *Gate {
	return &Gate{
		runner: runner,
		etl:    etl,
		logger: log.WithField("module", "quality"),
	}
}

// RunChecks executes the battery over the window's fact rows. The
// returned error covers query failures only, never found violations.
func (g *Gate) RunChecks(ctx context.Context, window contracts.DateWindow) (*contracts.QualityReport, error) {
	report := &contracts.QualityReport{
		Window:     window,
		CheckedAt:  time.Now().UTC(),
		Violations: make(map[string]int),
	}

	for _, check := range BuildChecks(g.etl, window) {
		count, err := g.runner.CountViolations(ctx, check)
		if err != nil {
			return nil, fmt.Errorf("quality check %s: %w", check.Name, err)
		}
		report.Violations[check.Name] = count

		if count > 0 {
			g.logger.WithFields(map[string]interface{}{
				"check":      check.Name,
				"violations": count,
				"window":     window.String(),
			}).Warn("Quality check found violations")
		}
	}

	g.logger.WithFields(map[string]interface{}{
		"window":     window.String(),
		"checks":     len(report.Violations),
		"violations": report.TotalViolations(),
	}).Info("Quality battery finished")

	return report, nil
}

// BuildChecks assembles the battery for a window: range bounds come from
// configuration, key bounds from the window's date keys (end exclusive).
func BuildChecks(etl config.ETLConfig, window contracts.DateWindow) []Check {
	startKey := contracts.DateKeyOf(window.Start)
	endKey := contracts.DateKeyOf(window.End)

	keyed := func(query string, extra ...interface{}) ([]interface{}, string) {
		return append([]interface{}{startKey, endKey}, extra...), query
	}

	var checks []Check

	args, query := keyed(`
		SELECT COUNT(*) FROM core.fact_co2_emissions
		WHERE date_key >= $1 AND date_key < $2
		  AND co2_emission_g_kwh IS NULL
	`)
	checks = append(checks, Check{Name: "co2_null", Query: query, Args: args})

	args, query = keyed(`
		SELECT COUNT(*) FROM core.fact_co2_emissions
		WHERE date_key >= $1 AND date_key < $2
		  AND (co2_emission_g_kwh < $3 OR co2_emission_g_kwh > $4)
	`, etl.CO2RangeMin, etl.CO2RangeMax)
	checks = append(checks, Check{Name: "co2_out_of_range", Query: query, Args: args})

	args, query = keyed(`
		SELECT COUNT(*) FROM core.fact_electricity_prices
		WHERE date_key >= $1 AND date_key < $2
		  AND (spot_price_eur IS NULL OR spot_price_eur < $3 OR spot_price_eur > $4)
	`, etl.PriceRangeMinEUR, etl.PriceRangeMaxEUR)
	checks = append(checks, Check{Name: "price_out_of_range", Query: query, Args: args})

	args, query = keyed(`
		SELECT COUNT(*) FROM core.fact_energy_production
		WHERE date_key >= $1 AND date_key < $2
		  AND (renewable_percentage < $3 OR renewable_percentage > $4)
	`, etl.RenewablePctMin, etl.RenewablePctMax)
	checks = append(checks, Check{Name: "renewable_pct_out_of_range", Query: query, Args: args})

	for _, fact := range []struct {
		name  string
		table string
	}{
		{"co2_orphan_keys", "core.fact_co2_emissions"},
		{"production_orphan_keys", "core.fact_energy_production"},
		{"price_orphan_keys", "core.fact_electricity_prices"},
	} {
		args, query = keyed(fmt.Sprintf(`
			SELECT COUNT(*) FROM %s f
			WHERE f.date_key >= $1 AND f.date_key < $2
			  AND (
				NOT EXISTS (SELECT 1 FROM core.dim_date d WHERE d.date_key = f.date_key)
				OR NOT EXISTS (SELECT 1 FROM core.dim_time t WHERE t.time_key = f.time_key AND t.grain = 'hour')
				OR NOT EXISTS (SELECT 1 FROM core.dim_price_area a WHERE a.price_area_key = f.price_area_key)
			  )
		`, fact.table))
		checks = append(checks, Check{Name: fact.name, Query: query, Args: args})
	}

	return checks
}
