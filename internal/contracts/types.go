package contracts

import (
	"fmt"
	"time"
)

// Dataset identifies an upstream Energi Data Service dataset.
type Dataset string

const (
	DatasetCO2        Dataset = "CO2Emis"
	DatasetProduction Dataset = "ProductionConsumptionSettlement"
	DatasetPrices     Dataset = "Elspotprices"
)

// AllDatasets lists every dataset the pipeline knows about.
var AllDatasets = []Dataset{DatasetCO2, DatasetProduction, DatasetPrices}

// ParseDataset resolves a user-supplied dataset name (case-sensitive id
// or one of the short aliases used on the CLI).
func ParseDataset(s string) (Dataset, error) {
	switch s {
	case string(DatasetCO2), "co2":
		return DatasetCO2, nil
	case string(DatasetProduction), "production":
		return DatasetProduction, nil
	case string(DatasetPrices), "prices":
		return DatasetPrices, nil
	}
	return "", NewConfigurationError("unknown dataset: %s (valid: co2, production, prices)", s)
}

// Grain is the time resolution of a record stream.
type Grain string

const (
	GrainHour       Grain = "hour"
	GrainFiveMinute Grain = "5min"
)

// BucketCount returns the number of sub-day buckets for the grain.
func (g Grain) BucketCount() int {
	switch g {
	case GrainFiveMinute:
		return 288
	default:
		return 24
	}
}

// Step returns the bucket duration for the grain.
func (g Grain) Step() time.Duration {
	switch g {
	case GrainFiveMinute:
		return 5 * time.Minute
	default:
		return time.Hour
	}
}

// DateWindow is a half-open [Start, End) calendar window. Both bounds are
// dates; time-of-day components are ignored.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate returns a ConfigurationError for an inverted window.
func (w DateWindow) Validate() error {
	if w.Start.After(w.End) {
		return NewConfigurationError("invalid window: start %s after end %s",
			w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}
	return nil
}

// Days returns every calendar date in the window, end exclusive.
func (w DateWindow) Days() []time.Time {
	var days []time.Time
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (w DateWindow) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// DateKeyOf derives the YYYYMMDD dimension key from a timestamp.
// The key is deterministic from the calendar date.
func DateKeyOf(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// TimeKeyOf derives the sub-day bucket key at the given grain:
// the hour 0-23 at hourly grain, the 5-minute slot 0-287 otherwise.
func TimeKeyOf(t time.Time, grain Grain) int {
	if grain == GrainFiveMinute {
		return t.Hour()*12 + t.Minute()/5
	}
	return t.Hour()
}

// HourOfTimeKey maps a time key back to its hour of day.
func HourOfTimeKey(key int, grain Grain) int {
	if grain == GrainFiveMinute {
		return key / 12
	}
	return key
}

// DateDim is one row of the date dimension, keyed YYYYMMDD.
type DateDim struct {
	DateKey   int       `json:"date_key"`
	Date      time.Time `json:"date"`
	Year      int       `json:"year"`
	Quarter   int       `json:"quarter"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	DayOfWeek int       `json:"day_of_week"` // 0 = Monday .. 6 = Sunday
	IsWeekend bool      `json:"is_weekend"`
}

// TimeDim is one row of the time-of-day dimension. Both grains live in
// the same table, keyed (time_key, grain).
type TimeDim struct {
	TimeKey    int   `json:"time_key"`
	Grain      Grain `json:"grain"`
	Hour       int   `json:"hour"`
	Minute     int   `json:"minute"`
	IsPeakHour bool  `json:"is_peak_hour"`
}

// PriceArea is one row of the price-area dimension. The reference set is
// static; unknown codes seen during load are rejected, never created.
type PriceArea struct {
	Key      int    `json:"price_area_key"`
	Code     string `json:"code"`
	IsDanish bool   `json:"is_danish"`
}

// RawCO2Record is a 5-minute CO2 intensity sample as staged from CO2Emis.
type RawCO2Record struct {
	TimestampUTC   time.Time `json:"minutes5_utc"`
	TimestampLocal time.Time `json:"minutes5_dk"`
	PriceArea      string    `json:"price_area"`
	CO2Emission    float64   `json:"co2_emission"` // g/kWh
}

// RawProductionRecord is an hourly per-technology production sample as
// staged from ProductionConsumptionSettlement. All values are MWh.
type RawProductionRecord struct {
	TimestampUTC   time.Time `json:"hour_utc"`
	TimestampLocal time.Time `json:"hour_dk"`
	PriceArea      string    `json:"price_area"`

	OffshoreWindLt100MW float64 `json:"offshore_wind_lt_100mw"`
	OffshoreWindGe100MW float64 `json:"offshore_wind_ge_100mw"`
	OnshoreWindLt50kW   float64 `json:"onshore_wind_lt_50kw"`
	OnshoreWindGe50kW   float64 `json:"onshore_wind_ge_50kw"`
	SolarLt10kW         float64 `json:"solar_lt_10kw"`
	SolarGe10Lt40kW     float64 `json:"solar_ge_10_lt_40kw"`
	SolarGe40kW         float64 `json:"solar_ge_40kw"`
	Hydro               float64 `json:"hydro"`
	CentralPower        float64 `json:"central_power"`
	LocalPower          float64 `json:"local_power"`
	GrossConsumption    float64 `json:"gross_consumption"`
}

// WindMWh sums both onshore and offshore wind bands.
func (r RawProductionRecord) WindMWh() float64 {
	return r.OffshoreWindLt100MW + r.OffshoreWindGe100MW + r.OnshoreWindLt50kW + r.OnshoreWindGe50kW
}

// SolarMWh sums all solar capacity bands.
func (r RawProductionRecord) SolarMWh() float64 {
	return r.SolarLt10kW + r.SolarGe10Lt40kW + r.SolarGe40kW
}

// RenewableMWh sums wind, solar and hydro.
func (r RawProductionRecord) RenewableMWh() float64 {
	return r.WindMWh() + r.SolarMWh() + r.Hydro
}

// TotalMWh sums renewable and conventional production.
func (r RawProductionRecord) TotalMWh() float64 {
	return r.RenewableMWh() + r.CentralPower + r.LocalPower
}

// RawPriceRecord is an hourly spot price sample as staged from Elspotprices.
type RawPriceRecord struct {
	TimestampUTC   time.Time `json:"hour_utc"`
	TimestampLocal time.Time `json:"hour_dk"`
	PriceArea      string    `json:"price_area"`
	SpotPriceDKK   float64   `json:"spot_price_dkk"`
	SpotPriceEUR   float64   `json:"spot_price_eur"`
}

// GrainKey identifies a conformed bucket: the shared join key of every
// conformed record and fact row.
type GrainKey struct {
	DateKey      int `json:"date_key"`
	TimeKey      int `json:"time_key"`
	PriceAreaKey int `json:"price_area_key"`
}

// ConformedCO2 is a CO2 sample mapped onto the dimensional grain at its
// native 5-minute resolution.
type ConformedCO2 struct {
	GrainKey
	Intensity float64 `json:"intensity"`
	Suspect   bool    `json:"suspect"`
}

// ConformedProduction is an hourly production sample on the grain.
type ConformedProduction struct {
	GrainKey
	Breakdown        RawProductionRecord `json:"breakdown"`
	GrossConsumption float64             `json:"gross_consumption"`
	Suspect          bool                `json:"suspect"`
}

// ConformedPrice is an hourly spot price on the grain.
type ConformedPrice struct {
	GrainKey
	SpotPriceDKK float64 `json:"spot_price_dkk"`
	SpotPriceEUR float64 `json:"spot_price_eur"`
	Suspect      bool    `json:"suspect"`
}

// CO2Fact is one hourly row of core.fact_co2_emissions.
type CO2Fact struct {
	GrainKey
	CO2GramsPerKWh float64 `json:"co2_emission_g_kwh"`
	SampleCount    int     `json:"sample_count"`
	Suspect        bool    `json:"suspect"`
}

// ProductionFact is one hourly row of core.fact_energy_production.
type ProductionFact struct {
	GrainKey
	OffshoreWindMWh     float64 `json:"offshore_wind_mwh"`
	OnshoreWindMWh      float64 `json:"onshore_wind_mwh"`
	SolarMWh            float64 `json:"solar_mwh"`
	HydroMWh            float64 `json:"hydro_mwh"`
	ConventionalMWh     float64 `json:"conventional_mwh"`
	TotalProductionMWh  float64 `json:"total_production_mwh"`
	TotalRenewableMWh   float64 `json:"total_renewable_mwh"`
	RenewablePercentage float64 `json:"renewable_percentage"`
	WindPercentage      float64 `json:"wind_percentage"`
	SolarPercentage     float64 `json:"solar_percentage"`
	GrossConsumptionMWh float64 `json:"gross_consumption_mwh"`
}

// PriceFact is one hourly row of core.fact_electricity_prices.
type PriceFact struct {
	GrainKey
	SpotPriceDKK    float64 `json:"spot_price_dkk"`
	SpotPriceEUR    float64 `json:"spot_price_eur"`
	IsNegativePrice bool    `json:"is_negative_price"`
	IsPriceSpike    bool    `json:"is_price_spike"`
	PriceVolatility float64 `json:"price_volatility"`
}
