package conform

import (
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Mapper resolves raw staging records onto the dimensional grain. Keys
// derive from the local timestamp at each dataset's native resolution.
// Unknown price areas and zero timestamps drop the record; values outside
// the configured sane ranges pass through flagged suspect so the quality
// gate can report them.
type Mapper struct {
	etl    config.ETLConfig
	logger *logger.Logger
}

// NewMapper creates a conformance mapper.
func NewMapper(etl config.ETLConfig, log *logger.Logger) *Mapper {
	return &Mapper{
		etl:    etl,
		logger: log.WithField("module", "conform"),
	}
}

// AreaIndex builds the code -> key lookup from the price-area dimension.
func AreaIndex(areas []contracts.PriceArea) map[string]int {
	index := make(map[string]int, len(areas))
	for _, a := range areas {
		index[a.Code] = a.Key
	}
	return index
}

// ConformCO2 maps 5-minute CO2 samples onto the grain. Intensity outside
// [CO2SuspectMin, CO2SuspectMax] is kept but marked suspect.
func (m *Mapper) ConformCO2(records []contracts.RawCO2Record, areas map[string]int) ([]contracts.ConformedCO2, contracts.ConformStats) {
	stats := contracts.ConformStats{Dataset: contracts.DatasetCO2, Input: len(records)}

	var out []contracts.ConformedCO2
	for _, rec := range records {
		key, ok := m.resolveKey(rec.TimestampLocal, rec.PriceArea, contracts.GrainFiveMinute, areas, &stats)
		if !ok {
			continue
		}

		suspect := rec.CO2Emission < m.etl.CO2SuspectMin || rec.CO2Emission > m.etl.CO2SuspectMax
		if suspect {
			stats.Suspect++
		}

		out = append(out, contracts.ConformedCO2{
			GrainKey:  key,
			Intensity: rec.CO2Emission,
			Suspect:   suspect,
		})
	}

	stats.Conformed = len(out)
	m.logStats(stats)
	return out, stats
}

// ConformProduction maps hourly production settlements onto the grain.
// A negative technology band or negative gross consumption is suspect.
func (m *Mapper) ConformProduction(records []contracts.RawProductionRecord, areas map[string]int) ([]contracts.ConformedProduction, contracts.ConformStats) {
	stats := contracts.ConformStats{Dataset: contracts.DatasetProduction, Input: len(records)}

	var out []contracts.ConformedProduction
	for _, rec := range records {
		key, ok := m.resolveKey(rec.TimestampLocal, rec.PriceArea, contracts.GrainHour, areas, &stats)
		if !ok {
			continue
		}

		suspect := hasNegativeBand(rec)
		if suspect {
			stats.Suspect++
		}

		out = append(out, contracts.ConformedProduction{
			GrainKey:         key,
			Breakdown:        rec,
			GrossConsumption: rec.GrossConsumption,
			Suspect:          suspect,
		})
	}

	stats.Conformed = len(out)
	m.logStats(stats)
	return out, stats
}

// ConformPrices maps hourly spot prices onto the grain. A EUR price
// outside [PriceRangeMinEUR, PriceRangeMaxEUR] is suspect. Negative
// prices inside the range are normal market behavior, not suspect.
func (m *Mapper) ConformPrices(records []contracts.RawPriceRecord, areas map[string]int) ([]contracts.ConformedPrice, contracts.ConformStats) {
	stats := contracts.ConformStats{Dataset: contracts.DatasetPrices, Input: len(records)}

	var out []contracts.ConformedPrice
	for _, rec := range records {
		key, ok := m.resolveKey(rec.TimestampLocal, rec.PriceArea, contracts.GrainHour, areas, &stats)
		if !ok {
			continue
		}

		suspect := rec.SpotPriceEUR < m.etl.PriceRangeMinEUR || rec.SpotPriceEUR > m.etl.PriceRangeMaxEUR
		if suspect {
			stats.Suspect++
		}

		out = append(out, contracts.ConformedPrice{
			GrainKey:     key,
			SpotPriceDKK: rec.SpotPriceDKK,
			SpotPriceEUR: rec.SpotPriceEUR,
			Suspect:      suspect,
		})
	}

	stats.Conformed = len(out)
	m.logStats(stats)
	return out, stats
}

// resolveKey derives the grain key from the local timestamp and area
// code, counting drops into stats.
func (m *Mapper) resolveKey(local time.Time, code string, grain contracts.Grain, areas map[string]int, stats *contracts.ConformStats) (contracts.GrainKey, bool) {
	if local.IsZero() {
		stats.DroppedBadTime++
		return contracts.GrainKey{}, false
	}

	areaKey, ok := areas[code]
	if !ok {
		stats.DroppedBadArea++
		return contracts.GrainKey{}, false
	}

	return contracts.GrainKey{
		DateKey:      contracts.DateKeyOf(local),
		TimeKey:      contracts.TimeKeyOf(local, grain),
		PriceAreaKey: areaKey,
	}, true
}

func hasNegativeBand(rec contracts.RawProductionRecord) bool {
	bands := []float64{
		rec.OffshoreWindLt100MW, rec.OffshoreWindGe100MW,
		rec.OnshoreWindLt50kW, rec.OnshoreWindGe50kW,
		rec.SolarLt10kW, rec.SolarGe10Lt40kW, rec.SolarGe40kW,
		rec.Hydro, rec.CentralPower, rec.LocalPower, rec.GrossConsumption,
	}
	for _, b := range bands {
		if b < 0 {
			return true
		}
	}
	return false
}

func (m *Mapper) logStats(stats contracts.ConformStats) {
	m.logger.WithFields(map[string]interface{}{
		"dataset":          stats.Dataset,
		"input":            stats.Input,
		"conformed":        stats.Conformed,
		"dropped_bad_time": stats.DroppedBadTime,
		"dropped_bad_area": stats.DroppedBadArea,
		"suspect":          stats.Suspect,
	}).Info("Stream conformed")
}
