package facts

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// fakeFactStore upserts by natural key, mirroring ON CONFLICT DO UPDATE.
type fakeFactStore struct {
	co2        map[contracts.GrainKey]contracts.CO2Fact
	production map[contracts.GrainKey]contracts.ProductionFact
	prices     map[contracts.GrainKey]contracts.PriceFact
}

func newFakeFactStore() *fakeFactStore {
	return &fakeFactStore{
		co2:        make(map[contracts.GrainKey]contracts.CO2Fact),
		production: make(map[contracts.GrainKey]contracts.ProductionFact),
		prices:     make(map[contracts.GrainKey]contracts.PriceFact),
	}
}

func (f *fakeFactStore) UpsertCO2Facts(_ context.Context, facts []contracts.CO2Fact) (int, error) {
	for _, fact := range facts {
		f.co2[fact.GrainKey] = fact
	}
	return len(facts), nil
}

func (f *fakeFactStore) UpsertProductionFacts(_ context.Context, facts []contracts.ProductionFact) (int, error) {
	for _, fact := range facts {
		f.production[fact.GrainKey] = fact
	}
	return len(facts), nil
}

func (f *fakeFactStore) UpsertPriceFacts(_ context.Context, facts []contracts.PriceFact) (int, error) {
	for _, fact := range facts {
		f.prices[fact.GrainKey] = fact
	}
	return len(facts), nil
}

func testAggregator(store contracts.FactStore) *Aggregator {
	etl := config.ETLConfig{
		SpikeBaselineWindow: 720 * time.Hour,
		SpikeMultiplier:     3.0,
		SpikeMinSamples:     3,
		VolatilityWindow:    24 * time.Hour,
	}
	return NewAggregator(store, etl, logger.NewWriter(io.Discard, "error"))
}

func co2Sample(dateKey, slot, area int, intensity float64, suspect bool) contracts.ConformedCO2 {
	return contracts.ConformedCO2{
		GrainKey:  contracts.GrainKey{DateKey: dateKey, TimeKey: slot, PriceAreaKey: area},
		Intensity: intensity,
		Suspect:   suspect,
	}
}

func TestRollupToHourFullHour(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	// 12 samples in hour 10, linearly increasing.
	var samples []contracts.ConformedCO2
	for i := 0; i < 12; i++ {
		samples = append(samples, co2Sample(20240601, 10*12+i, 1, float64(100+i*10), false))
	}

	facts := a.RollupToHour(samples)
	require.Len(t, facts, 1)

	assert.Equal(t, 10, facts[0].TimeKey)
	assert.InDelta(t, 155.0, facts[0].CO2GramsPerKWh, 1e-9)
	assert.Equal(t, 12, facts[0].SampleCount)
	assert.False(t, facts[0].Suspect)
}

func TestRollupToHourPartialAndEmpty(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	// Three samples in hour 0, nothing anywhere else.
	samples := []contracts.ConformedCO2{
		co2Sample(20240601, 0, 1, 90, false),
		co2Sample(20240601, 1, 1, 100, false),
		co2Sample(20240601, 2, 1, 110, true),
	}

	facts := a.RollupToHour(samples)
	require.Len(t, facts, 1)

	// Mean of the three contributing samples, not padded to 12.
	assert.InDelta(t, 100.0, facts[0].CO2GramsPerKWh, 1e-9)
	assert.Equal(t, 3, facts[0].SampleCount)
	// One suspect sample taints the hour.
	assert.True(t, facts[0].Suspect)
}

func TestRollupToHourNoSamplesNoRows(t *testing.T) {
	a := testAggregator(newFakeFactStore())
	assert.Empty(t, a.RollupToHour(nil))
}

func hourKey(dateKey, hour, area int) contracts.GrainKey {
	return contracts.GrainKey{DateKey: dateKey, TimeKey: hour, PriceAreaKey: area}
}

func TestJoinStreamsStrictInnerJoin(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	co2 := []contracts.CO2Fact{
		{GrainKey: hourKey(20240601, 0, 1), CO2GramsPerKWh: 85, SampleCount: 12},
		{GrainKey: hourKey(20240601, 1, 1), CO2GramsPerKWh: 90, SampleCount: 12},
	}
	production := []contracts.ConformedProduction{
		{GrainKey: hourKey(20240601, 0, 1), Breakdown: contracts.RawProductionRecord{CentralPower: 500}},
	}
	prices := []contracts.ConformedPrice{
		{GrainKey: hourKey(20240601, 0, 1), SpotPriceEUR: 50},
		{GrainKey: hourKey(20240601, 2, 1), SpotPriceEUR: 55},
	}

	co2Facts, prodFacts, priceFacts, gaps, skipped := a.JoinStreams(co2, production, prices)

	// Only hour 0 is present in all three streams.
	require.Len(t, co2Facts, 1)
	require.Len(t, prodFacts, 1)
	require.Len(t, priceFacts, 1)
	assert.Equal(t, hourKey(20240601, 0, 1), co2Facts[0].GrainKey)

	// Hours 1 and 2 each miss at least one stream.
	assert.Equal(t, 2, gaps)
	assert.Zero(t, skipped)
}

func TestJoinStreamsSkipsUnresolvableKeyWhole(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	good := hourKey(20240601, 0, 1)
	bad := hourKey(20240601, 99, 1) // hour component outside 0..23

	co2 := []contracts.CO2Fact{
		{GrainKey: good, CO2GramsPerKWh: 85, SampleCount: 12},
		{GrainKey: bad, CO2GramsPerKWh: 90, SampleCount: 12},
	}
	production := []contracts.ConformedProduction{
		{GrainKey: good, Breakdown: contracts.RawProductionRecord{CentralPower: 500}},
		{GrainKey: bad, Breakdown: contracts.RawProductionRecord{CentralPower: 500}},
	}
	prices := []contracts.ConformedPrice{
		{GrainKey: good, SpotPriceEUR: 50},
		{GrainKey: bad, SpotPriceEUR: 55},
	}

	co2Facts, prodFacts, priceFacts, gaps, skipped := a.JoinStreams(co2, production, prices)

	// The bad key drops from all three outputs together, never leaving a
	// partial fact triple behind.
	require.Len(t, co2Facts, 1)
	require.Len(t, prodFacts, 1)
	require.Len(t, priceFacts, 1)
	assert.Equal(t, good, co2Facts[0].GrainKey)
	assert.Equal(t, good, prodFacts[0].GrainKey)
	assert.Equal(t, good, priceFacts[0].GrainKey)

	assert.Zero(t, gaps)
	assert.Equal(t, 1, skipped)
}

func TestProductionFactDerivedMetrics(t *testing.T) {
	key := hourKey(20240601, 12, 1)
	p := contracts.ConformedProduction{
		GrainKey: key,
		Breakdown: contracts.RawProductionRecord{
			OffshoreWindLt100MW: 100,
			OffshoreWindGe100MW: 150,
			OnshoreWindLt50kW:   50,
			OnshoreWindGe50kW:   100,
			SolarLt10kW:         20,
			SolarGe10Lt40kW:     30,
			SolarGe40kW:         40,
			Hydro:               10,
			CentralPower:        300,
			LocalPower:          200,
		},
		GrossConsumption: 950,
	}

	fact := productionFact(key, p)

	assert.InDelta(t, 250.0, fact.OffshoreWindMWh, 1e-9)
	assert.InDelta(t, 150.0, fact.OnshoreWindMWh, 1e-9)
	assert.InDelta(t, 90.0, fact.SolarMWh, 1e-9)
	assert.InDelta(t, 500.0, fact.ConventionalMWh, 1e-9)
	assert.InDelta(t, 500.0, fact.TotalRenewableMWh, 1e-9)
	assert.InDelta(t, 1000.0, fact.TotalProductionMWh, 1e-9)
	assert.InDelta(t, 50.0, fact.RenewablePercentage, 1e-9)
	assert.InDelta(t, 40.0, fact.WindPercentage, 1e-9)
	assert.InDelta(t, 9.0, fact.SolarPercentage, 1e-9)
	assert.InDelta(t, 950.0, fact.GrossConsumptionMWh, 1e-9)
}

func TestProductionFactZeroTotal(t *testing.T) {
	key := hourKey(20240601, 3, 1)
	fact := productionFact(key, contracts.ConformedProduction{GrainKey: key})

	assert.Zero(t, fact.RenewablePercentage)
	assert.Zero(t, fact.WindPercentage)
	assert.Zero(t, fact.SolarPercentage)
}

func priceRow(dateKey, hour, area int, eur float64) contracts.ConformedPrice {
	return contracts.ConformedPrice{
		GrainKey:     hourKey(dateKey, hour, area),
		SpotPriceDKK: eur * 7.46,
		SpotPriceEUR: eur,
	}
}

func TestDerivePriceFactsNegativeFlag(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	facts := a.derivePriceFacts([]contracts.ConformedPrice{
		priceRow(20240601, 0, 1, -12.5),
		priceRow(20240601, 1, 1, 40),
	})
	require.Len(t, facts, 2)

	byHour := map[int]contracts.PriceFact{}
	for _, f := range facts {
		byHour[f.TimeKey] = f
	}

	assert.True(t, byHour[0].IsNegativePrice)
	assert.False(t, byHour[1].IsNegativePrice)
}

func TestDerivePriceFactsSpike(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	// Three baseline hours around 50 EUR, then a 400 EUR hour.
	rows := []contracts.ConformedPrice{
		priceRow(20240601, 0, 1, 50),
		priceRow(20240601, 1, 1, 48),
		priceRow(20240601, 2, 1, 52),
		priceRow(20240601, 3, 1, 400),
	}

	facts := a.derivePriceFacts(rows)
	require.Len(t, facts, 4)

	byHour := map[int]contracts.PriceFact{}
	for _, f := range facts {
		byHour[f.TimeKey] = f
	}

	// Hour 2 has only two trailing samples, below SpikeMinSamples.
	assert.False(t, byHour[2].IsPriceSpike)
	// 400 > mean(50,48,52) * 3.
	assert.True(t, byHour[3].IsPriceSpike)
	// Baseline hours themselves are not spikes.
	assert.False(t, byHour[0].IsPriceSpike)
	assert.False(t, byHour[1].IsPriceSpike)
}

func TestDerivePriceFactsVolatility(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	rows := []contracts.ConformedPrice{
		priceRow(20240601, 0, 1, 40),
		priceRow(20240601, 1, 1, 60),
	}

	facts := a.derivePriceFacts(rows)
	require.Len(t, facts, 2)

	byHour := map[int]contracts.PriceFact{}
	for _, f := range facts {
		byHour[f.TimeKey] = f
	}

	// Single-sample window has no volatility.
	assert.Zero(t, byHour[0].PriceVolatility)
	// Population stddev of {40, 60} is 10.
	assert.InDelta(t, 10.0, byHour[1].PriceVolatility, 1e-9)
}

func TestDerivePriceFactsPerAreaBaselines(t *testing.T) {
	a := testAggregator(newFakeFactStore())

	// DK1 carries a high baseline; the DK2 row must not inherit it.
	rows := []contracts.ConformedPrice{
		priceRow(20240601, 0, 1, 500),
		priceRow(20240601, 1, 1, 500),
		priceRow(20240601, 2, 1, 500),
		priceRow(20240601, 3, 1, 500),
		priceRow(20240601, 3, 2, 400),
	}

	facts := a.derivePriceFacts(rows)
	require.Len(t, facts, 5)

	for _, f := range facts {
		assert.False(t, f.IsPriceSpike, "hour %d area %d", f.TimeKey, f.PriceAreaKey)
	}
}

func TestStddev(t *testing.T) {
	assert.Zero(t, stddev(nil))
	assert.Zero(t, stddev([]float64{42}))
	assert.InDelta(t, math.Sqrt(2.0/3.0), stddev([]float64{1, 2, 3}), 1e-9)
}

func TestAggregateEndToEnd(t *testing.T) {
	store := newFakeFactStore()
	a := testAggregator(store)

	var co2 []contracts.ConformedCO2
	for i := 0; i < 12; i++ {
		co2 = append(co2, co2Sample(20240601, i, 1, 80, false))
	}

	production := []contracts.ConformedProduction{{
		GrainKey:  hourKey(20240601, 0, 1),
		Breakdown: contracts.RawProductionRecord{CentralPower: 500, Hydro: 500},
	}}
	prices := []contracts.ConformedPrice{priceRow(20240601, 0, 1, 45)}

	stats, err := a.Aggregate(context.Background(), co2, production, prices)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CO2HourBuckets)
	assert.Equal(t, 0, stats.JoinGaps)
	assert.Equal(t, 1, stats.FactRows)
	assert.Equal(t, 3, stats.FactsUpserted)
	assert.Equal(t, 0, stats.KeysSkipped)

	key := hourKey(20240601, 0, 1)
	assert.InDelta(t, 80.0, store.co2[key].CO2GramsPerKWh, 1e-9)
	assert.InDelta(t, 50.0, store.production[key].RenewablePercentage, 1e-9)
	assert.InDelta(t, 45.0, store.prices[key].SpotPriceEUR, 1e-9)

	// Re-running the same window replaces, never duplicates.
	_, err = a.Aggregate(context.Background(), co2, production, prices)
	require.NoError(t, err)
	assert.Len(t, store.co2, 1)
	assert.Len(t, store.production, 1)
	assert.Len(t, store.prices, 1)
}
