package eds

// Wire types for the Energi Data Service JSON API. Field names follow
// the upstream column names exactly. Numeric fields are pointers because
// the API serializes missing measurements as null.

// pagedResponse is the envelope every dataset endpoint returns.
type pagedResponse[T any] struct {
	Total   int `json:"total"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Records []T `json:"records"`
}

// co2Row is one CO2Emis record (5-minute grain).
type co2Row struct {
	Minutes5UTC string   `json:"Minutes5UTC"`
	Minutes5DK  string   `json:"Minutes5DK"`
	PriceArea   string   `json:"PriceArea"`
	CO2Emission *float64 `json:"CO2Emission"`
}

// productionRow is one ProductionConsumptionSettlement record (hourly).
type productionRow struct {
	HourUTC   string `json:"HourUTC"`
	HourDK    string `json:"HourDK"`
	PriceArea string `json:"PriceArea"`

	OffshoreWindLt100MWMWh  *float64 `json:"OffshoreWindLt100MW_MWh"`
	OffshoreWindGe100MWMWh  *float64 `json:"OffshoreWindGe100MW_MWh"`
	OnshoreWindLt50kWMWh    *float64 `json:"OnshoreWindLt50kW_MWh"`
	OnshoreWindGe50kWMWh    *float64 `json:"OnshoreWindGe50kW_MWh"`
	SolarPowerLt10kWMWh     *float64 `json:"SolarPowerLt10kW_MWh"`
	SolarPowerGe10Lt40kWMWh *float64 `json:"SolarPowerGe10Lt40kW_MWh"`
	SolarPowerGe40kWMWh     *float64 `json:"SolarPowerGe40kW_MWh"`
	HydroPowerMWh           *float64 `json:"HydroPowerMWh"`
	CentralPowerMWh         *float64 `json:"CentralPowerMWh"`
	LocalPowerMWh           *float64 `json:"LocalPowerMWh"`
	GrossConsumptionMWh     *float64 `json:"GrossConsumptionMWh"`
}

// priceRow is one Elspotprices record (hourly).
type priceRow struct {
	HourUTC      string   `json:"HourUTC"`
	HourDK       string   `json:"HourDK"`
	PriceArea    string   `json:"PriceArea"`
	SpotPriceDKK *float64 `json:"SpotPriceDKK"`
	SpotPriceEUR *float64 `json:"SpotPriceEUR"`
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
