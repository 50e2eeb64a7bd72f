package contracts

import "context"

// SourceClient pulls raw records from the upstream REST API for a date
// window, paging until exhausted. Each decoded page is handed to sink as
// it arrives, so callers can persist incrementally and a failure partway
// through a window loses only the pages not yet delivered. A sink error
// aborts the fetch and is returned as-is. Implementations must be
// restartable: re-issuing the same call re-fetches the window, no cursor
// state kept.
type SourceClient interface {
	FetchCO2(ctx context.Context, window DateWindow, sink func([]RawCO2Record) error) error
	FetchProduction(ctx context.Context, window DateWindow, sink func([]RawProductionRecord) error) error
	FetchPrices(ctx context.Context, window DateWindow, sink func([]RawPriceRecord) error) error
}

// DimensionStore persists and serves the three dimension tables.
type DimensionStore interface {
	EnsureDates(ctx context.Context, rows []DateDim) (inserted int, err error)
	EnsureTimeBuckets(ctx context.Context, rows []TimeDim) (inserted int, err error)
	EnsurePriceAreas(ctx context.Context, rows []PriceArea) (inserted int, err error)

	// PriceAreas returns the full static reference set.
	PriceAreas(ctx context.Context) ([]PriceArea, error)
}

// StagingStore is the append-only raw staging area, deduplicated on the
// (timestamp, price area) natural key per dataset.
type StagingStore interface {
	SaveCO2(ctx context.Context, records []RawCO2Record) (persisted, skipped int, err error)
	SaveProduction(ctx context.Context, records []RawProductionRecord) (persisted, skipped int, err error)
	SavePrices(ctx context.Context, records []RawPriceRecord) (persisted, skipped int, err error)

	LoadCO2(ctx context.Context, window DateWindow) ([]RawCO2Record, error)
	LoadProduction(ctx context.Context, window DateWindow) ([]RawProductionRecord, error)
	LoadPrices(ctx context.Context, window DateWindow) ([]RawPriceRecord, error)
}

// FactStore owns all fact-table writes. Upserts are keyed by the natural
// key (date, hour, price area), making re-runs replace rather than
// duplicate.
type FactStore interface {
	UpsertCO2Facts(ctx context.Context, facts []CO2Fact) (int, error)
	UpsertProductionFacts(ctx context.Context, facts []ProductionFact) (int, error)
	UpsertPriceFacts(ctx context.Context, facts []PriceFact) (int, error)
}

// RunStore persists run summaries for the ops surface.
type RunStore interface {
	SaveRun(ctx context.Context, summary *RunSummary) error
	LatestRun(ctx context.Context) (*RunSummary, error)
}
