package facts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Aggregator rolls conformed streams up to the hourly grain, joins them
// and writes fact rows. It is the only writer of the fact tables.
type Aggregator struct {
	store  contracts.FactStore
	etl    config.ETLConfig
	logger *logger.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(store contracts.FactStore, etl config.ETLConfig, log *logger.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		etl:    etl,
		logger: log.WithField("module", "aggregator"),
	}
}

// RollupToHour averages 5-minute CO2 samples per (date, hour, area)
// bucket. A bucket with zero samples produces no row; absence means
// missing data, never a true zero. The hourly row is suspect when any
// contributing sample was.
func (a *Aggregator) RollupToHour(records []contracts.ConformedCO2) []contracts.CO2Fact {
	type bucket struct {
		sum     float64
		count   int
		suspect bool
	}

	buckets := make(map[contracts.GrainKey]*bucket)
	for _, rec := range records {
		key := contracts.GrainKey{
			DateKey:      rec.DateKey,
			TimeKey:      contracts.HourOfTimeKey(rec.TimeKey, contracts.GrainFiveMinute),
			PriceAreaKey: rec.PriceAreaKey,
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += rec.Intensity
		b.count++
		b.suspect = b.suspect || rec.Suspect
	}

	facts := make([]contracts.CO2Fact, 0, len(buckets))
	for key, b := range buckets {
		facts = append(facts, contracts.CO2Fact{
			GrainKey:       key,
			CO2GramsPerKWh: b.sum / float64(b.count),
			SampleCount:    b.count,
			Suspect:        b.suspect,
		})
	}

	return facts
}

// JoinStreams inner-joins the three hourly streams on (date, hour,
// area). A key missing from any stream yields no fact rows for that key
// and counts as a join gap; a key whose date or hour component cannot
// resolve to an absolute hour is skipped whole. Partial facts are never
// produced.
func (a *Aggregator) JoinStreams(
	co2 []contracts.CO2Fact,
	production []contracts.ConformedProduction,
	prices []contracts.ConformedPrice,
) ([]contracts.CO2Fact, []contracts.ProductionFact, []contracts.PriceFact, int, int) {
	co2ByKey := make(map[contracts.GrainKey]contracts.CO2Fact, len(co2))
	for _, f := range co2 {
		co2ByKey[f.GrainKey] = f
	}
	prodByKey := make(map[contracts.GrainKey]contracts.ConformedProduction, len(production))
	for _, p := range production {
		prodByKey[p.GrainKey] = p
	}
	priceByKey := make(map[contracts.GrainKey]contracts.ConformedPrice, len(prices))
	for _, p := range prices {
		priceByKey[p.GrainKey] = p
	}

	union := make(map[contracts.GrainKey]struct{})
	for k := range co2ByKey {
		union[k] = struct{}{}
	}
	for k := range prodByKey {
		union[k] = struct{}{}
	}
	for k := range priceByKey {
		union[k] = struct{}{}
	}

	var (
		co2Facts  []contracts.CO2Fact
		prodFacts []contracts.ProductionFact
		priceRows []contracts.ConformedPrice
		gaps      int
		skipped   int
	)

	for key := range union {
		c, okC := co2ByKey[key]
		p, okP := prodByKey[key]
		pr, okPr := priceByKey[key]
		if !okC || !okP || !okPr {
			gaps++
			continue
		}
		if !resolvableKey(key) {
			skipped++
			a.logger.WithFields(map[string]interface{}{
				"date_key": key.DateKey,
				"time_key": key.TimeKey,
			}).Warn("Skipping fact key with unresolvable hour")
			continue
		}

		co2Facts = append(co2Facts, c)
		prodFacts = append(prodFacts, productionFact(key, p))
		priceRows = append(priceRows, pr)
	}

	priceFacts := a.derivePriceFacts(priceRows)

	return co2Facts, prodFacts, priceFacts, gaps, skipped
}

// Aggregate runs the full rollup -> join -> derive -> upsert stage for
// one window's conformed streams.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	co2 []contracts.ConformedCO2,
	production []contracts.ConformedProduction,
	prices []contracts.ConformedPrice,
) (contracts.AggregateStats, error) {
	stats := contracts.AggregateStats{}

	hourly := a.RollupToHour(co2)
	stats.CO2HourBuckets = len(hourly)

	co2Facts, prodFacts, priceFacts, gaps, skipped := a.JoinStreams(hourly, production, prices)
	stats.JoinGaps = gaps
	stats.FactRows = len(co2Facts)
	stats.KeysSkipped = skipped

	n, err := a.store.UpsertCO2Facts(ctx, co2Facts)
	stats.FactsUpserted += n
	if err != nil {
		return stats, fmt.Errorf("upsert co2 facts: %w", err)
	}

	n, err = a.store.UpsertProductionFacts(ctx, prodFacts)
	stats.FactsUpserted += n
	if err != nil {
		return stats, fmt.Errorf("upsert production facts: %w", err)
	}

	n, err = a.store.UpsertPriceFacts(ctx, priceFacts)
	stats.FactsUpserted += n
	if err != nil {
		return stats, fmt.Errorf("upsert price facts: %w", err)
	}

	a.logger.WithFields(map[string]interface{}{
		"co2_hour_buckets": stats.CO2HourBuckets,
		"join_gaps":        stats.JoinGaps,
		"fact_rows":        stats.FactRows,
		"facts_upserted":   stats.FactsUpserted,
	}).Info("Window aggregated")

	return stats, nil
}

// productionFact derives the per-technology sums and shares for one hour.
// Percentages guard against a zero production total.
func productionFact(key contracts.GrainKey, p contracts.ConformedProduction) contracts.ProductionFact {
	b := p.Breakdown

	offshore := b.OffshoreWindLt100MW + b.OffshoreWindGe100MW
	onshore := b.OnshoreWindLt50kW + b.OnshoreWindGe50kW
	solar := b.SolarMWh()
	conventional := b.CentralPower + b.LocalPower
	renewable := b.RenewableMWh()
	total := b.TotalMWh()

	fact := contracts.ProductionFact{
		GrainKey:            key,
		OffshoreWindMWh:     offshore,
		OnshoreWindMWh:      onshore,
		SolarMWh:            solar,
		HydroMWh:            b.Hydro,
		ConventionalMWh:     conventional,
		TotalProductionMWh:  total,
		TotalRenewableMWh:   renewable,
		GrossConsumptionMWh: p.GrossConsumption,
	}

	if total > 0 {
		fact.RenewablePercentage = renewable / total * 100
		fact.WindPercentage = (offshore + onshore) / total * 100
		fact.SolarPercentage = solar / total * 100
	}

	return fact
}

// derivePriceFacts computes the flag and volatility metrics that need a
// per-area chronological pass: is_price_spike against a trailing
// baseline mean, and trailing-window price volatility.
func (a *Aggregator) derivePriceFacts(rows []contracts.ConformedPrice) []contracts.PriceFact {
	type sample struct {
		row  contracts.ConformedPrice
		hour int64 // absolute hour index
	}

	byArea := make(map[int][]sample)
	for _, row := range rows {
		h := hourIndexOf(row.DateKey, row.TimeKey)
		byArea[row.PriceAreaKey] = append(byArea[row.PriceAreaKey], sample{row: row, hour: h})
	}

	baselineHours := int64(a.etl.SpikeBaselineWindow / time.Hour)
	volatilityHours := int64(a.etl.VolatilityWindow / time.Hour)

	var facts []contracts.PriceFact
	for _, samples := range byArea {
		sort.Slice(samples, func(i, j int) bool { return samples[i].hour < samples[j].hour })

		for i, s := range samples {
			fact := contracts.PriceFact{
				GrainKey:        s.row.GrainKey,
				SpotPriceDKK:    s.row.SpotPriceDKK,
				SpotPriceEUR:    s.row.SpotPriceEUR,
				IsNegativePrice: s.row.SpotPriceEUR < 0,
			}

			// Trailing baseline mean, current hour excluded.
			var sum float64
			var count int
			for j := i - 1; j >= 0 && samples[j].hour >= s.hour-baselineHours; j-- {
				sum += samples[j].row.SpotPriceEUR
				count++
			}
			if count >= a.etl.SpikeMinSamples {
				baseline := sum / float64(count)
				fact.IsPriceSpike = baseline > 0 && s.row.SpotPriceEUR > baseline*a.etl.SpikeMultiplier
			}

			// Trailing volatility, current hour included.
			var window []float64
			for j := i; j >= 0 && samples[j].hour > s.hour-volatilityHours; j-- {
				window = append(window, samples[j].row.SpotPriceEUR)
			}
			fact.PriceVolatility = stddev(window)

			facts = append(facts, fact)
		}
	}

	return facts
}

// resolvableKey reports whether a grain key's date and hour components
// decode to a calendar hour. Keys are validated once at join time;
// everything downstream may assume they resolve.
func resolvableKey(key contracts.GrainKey) bool {
	month := (key.DateKey / 100) % 100
	day := key.DateKey % 100
	return month >= 1 && month <= 12 && day >= 1 && day <= 31 &&
		key.TimeKey >= 0 && key.TimeKey <= 23
}

// hourIndexOf maps a (date key, hour key) pair to an absolute hour count
// so trailing windows work across day boundaries.
func hourIndexOf(dateKey, timeKey int) int64 {
	year := dateKey / 10000
	month := (dateKey / 100) % 100
	day := dateKey % 100
	t := time.Date(year, time.Month(month), day, timeKey, 0, 0, 0, time.UTC)
	return t.Unix() / 3600
}

// stddev is the population standard deviation; fewer than two samples
// yields 0.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
