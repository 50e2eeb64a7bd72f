// Package testdata generates deterministic synthetic source windows for
// pipeline tests: well-formed, gap-free raw streams whose expected fact
// counts are computable by hand.
package testdata

import (
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
)

// utcOffset mirrors the Danish summer offset so local and UTC variants
// differ the way real records do.
const utcOffset = 2 * time.Hour

// CO2 generates one 5-minute sample per slot per area; local timestamps
// cover the window end-exclusive.
func CO2(window contracts.DateWindow, areas []string) []contracts.RawCO2Record {
	var records []contracts.RawCO2Record
	for local := window.Start; local.Before(window.End); local = local.Add(5 * time.Minute) {
		for _, area := range areas {
			records = append(records, contracts.RawCO2Record{
				TimestampUTC:   local.Add(-utcOffset),
				TimestampLocal: local,
				PriceArea:      area,
				CO2Emission:    intensityAt(local),
			})
		}
	}
	return records
}

// Production generates one hourly settlement per area with a fixed
// 50/50 renewable split.
func Production(window contracts.DateWindow, areas []string) []contracts.RawProductionRecord {
	var records []contracts.RawProductionRecord
	for local := window.Start; local.Before(window.End); local = local.Add(time.Hour) {
		for _, area := range areas {
			records = append(records, contracts.RawProductionRecord{
				TimestampUTC:        local.Add(-utcOffset),
				TimestampLocal:      local,
				PriceArea:           area,
				OffshoreWindGe100MW: 300,
				OnshoreWindGe50kW:   150,
				SolarGe40kW:         50,
				CentralPower:        400,
				LocalPower:          100,
				GrossConsumption:    1100,
			})
		}
	}
	return records
}

// Prices generates one hourly spot price per area following a mild
// intraday curve, never negative and never spiking.
func Prices(window contracts.DateWindow, areas []string) []contracts.RawPriceRecord {
	var records []contracts.RawPriceRecord
	for local := window.Start; local.Before(window.End); local = local.Add(time.Hour) {
		for _, area := range areas {
			eur := 40.0 + float64(local.Hour())
			records = append(records, contracts.RawPriceRecord{
				TimestampUTC:   local.Add(-utcOffset),
				TimestampLocal: local,
				PriceArea:      area,
				SpotPriceDKK:   eur * 7.46,
				SpotPriceEUR:   eur,
			})
		}
	}
	return records
}

// intensityAt keeps CO2 intensity inside the sane range with hourly
// variation, so rollup means are predictable per hour.
func intensityAt(local time.Time) float64 {
	return 60 + float64(local.Hour())*2
}
