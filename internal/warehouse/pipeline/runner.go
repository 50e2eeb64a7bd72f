package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/internal/warehouse/conform"
	"github.com/nordwatt/energydwh/internal/warehouse/dimensions"
	"github.com/nordwatt/energydwh/internal/warehouse/facts"
	"github.com/nordwatt/energydwh/internal/warehouse/quality"
	"github.com/nordwatt/energydwh/internal/warehouse/staging"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Runner drives one batch invocation: dimensions, per-dataset ingest,
// conformance, aggregation, quality. Stages run in order; datasets
// ingest in parallel since they share no state. A dataset whose source
// stays down fails alone; whatever is already staged still flows into
// facts, and the strict join keeps partial hours out.
type Runner struct {
	dims       *dimensions.Builder
	ingestor   *staging.Ingestor
	mapper     *conform.Mapper
	aggregator *facts.Aggregator
	gate       *quality.Gate

	dimStore     contracts.DimensionStore
	stagingStore contracts.StagingStore
	runStore     contracts.RunStore

	logger *logger.Logger
}

// NewRunner wires the pipeline stages together.
func NewRunner(
	dims *dimensions.Builder,
	ingestor *staging.Ingestor,
	mapper *conform.Mapper,
	aggregator *facts.Aggregator,
	gate *quality.Gate,
	dimStore contracts.DimensionStore,
	stagingStore contracts.StagingStore,
	runStore contracts.RunStore,
	log *logger.Logger,
) *Runner {
	return &Runner{
		dims:         dims,
		ingestor:     ingestor,
		mapper:       mapper,
		aggregator:   aggregator,
		gate:         gate,
		dimStore:     dimStore,
		stagingStore: stagingStore,
		runStore:     runStore,
		logger:       log.WithField("module", "pipeline"),
	}
}

// Run executes the full pipeline for a window. The summary always
// carries whatever counts were achieved; the returned error is non-nil
// only for failures that stopped the run outright (bad window, broken
// dimensions or storage).
func (r *Runner) Run(ctx context.Context, window contracts.DateWindow, datasets []contracts.Dataset) (*contracts.RunSummary, error) {
	if len(datasets) == 0 {
		datasets = contracts.AllDatasets
	}

	summary := &contracts.RunSummary{
		Window:    window,
		Datasets:  datasets,
		StartedAt: time.Now().UTC(),
	}

	if err := window.Validate(); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		r.finish(ctx, summary)
		return summary, err
	}

	r.logger.WithFields(map[string]interface{}{
		"window":   window.String(),
		"datasets": len(datasets),
	}).Info("Pipeline run starting")

	if err := r.ensureDimensions(ctx, window); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		r.finish(ctx, summary)
		return summary, err
	}

	summary.Ingest = r.ingestAll(ctx, window, datasets)

	co2, production, prices, conformStats, err := r.conformStaged(ctx, window)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		r.finish(ctx, summary)
		return summary, err
	}
	summary.Conform = conformStats

	aggStats, err := r.aggregator.Aggregate(ctx, co2, production, prices)
	summary.Aggregate = aggStats
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		r.finish(ctx, summary)
		return summary, err
	}

	report, err := r.gate.RunChecks(ctx, window)
	if err != nil {
		// Advisory stage: a broken battery is reported, not fatal.
		summary.Errors = append(summary.Errors, fmt.Sprintf("quality gate: %v", err))
	} else {
		summary.Quality = report
	}

	r.finish(ctx, summary)

	r.logger.WithFields(map[string]interface{}{
		"window":    window.String(),
		"duration":  summary.Duration().String(),
		"fact_rows": summary.Aggregate.FactRows,
		"succeeded": summary.Succeeded(),
	}).Info("Pipeline run finished")

	return summary, nil
}

// ensureDimensions extends the date dimension over the window and makes
// sure time buckets and price areas exist.
func (r *Runner) ensureDimensions(ctx context.Context, window contracts.DateWindow) error {
	if _, err := r.dims.EnsureDateRange(ctx, window); err != nil {
		return fmt.Errorf("ensure date range: %w", err)
	}
	for _, grain := range []contracts.Grain{contracts.GrainHour, contracts.GrainFiveMinute} {
		if _, err := r.dims.EnsureTimeBuckets(ctx, grain); err != nil {
			return fmt.Errorf("ensure time buckets: %w", err)
		}
	}
	if _, err := r.dims.EnsurePriceAreas(ctx, nil); err != nil {
		return fmt.Errorf("ensure price areas: %w", err)
	}
	return nil
}

// ingestAll fetches every requested dataset concurrently. Each dataset
// fails alone; results land in per-dataset stats, never an error.
func (r *Runner) ingestAll(ctx context.Context, window contracts.DateWindow, datasets []contracts.Dataset) []contracts.IngestStats {
	stats := make([]contracts.IngestStats, len(datasets))

	var g errgroup.Group
	for i, dataset := range datasets {
		i, dataset := i, dataset
		g.Go(func() error {
			s, err := r.ingestor.FetchWindow(ctx, dataset, window)
			if err != nil {
				// Already recorded in the stats; siblings keep going.
				r.logger.WithError(err).WithField("dataset", dataset).Warn("Dataset ingest failed")
			}
			stats[i] = s
			return nil
		})
	}
	g.Wait()

	return stats
}

// conformStaged loads the window back out of staging and maps all three
// streams onto the grain.
func (r *Runner) conformStaged(ctx context.Context, window contracts.DateWindow) (
	[]contracts.ConformedCO2,
	[]contracts.ConformedProduction,
	[]contracts.ConformedPrice,
	[]contracts.ConformStats,
	error,
) {
	areas, err := r.dimStore.PriceAreas(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load price areas: %w", err)
	}
	index := conform.AreaIndex(areas)

	rawCO2, err := r.stagingStore.LoadCO2(ctx, window)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load staged co2: %w", err)
	}
	rawProduction, err := r.stagingStore.LoadProduction(ctx, window)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load staged production: %w", err)
	}
	rawPrices, err := r.stagingStore.LoadPrices(ctx, window)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load staged prices: %w", err)
	}

	co2, co2Stats := r.mapper.ConformCO2(rawCO2, index)
	production, prodStats := r.mapper.ConformProduction(rawProduction, index)
	prices, priceStats := r.mapper.ConformPrices(rawPrices, index)

	return co2, production, prices, []contracts.ConformStats{co2Stats, prodStats, priceStats}, nil
}

// finish stamps the summary and persists it. Persistence is best-effort;
// the summary is still returned to the caller on failure.
func (r *Runner) finish(ctx context.Context, summary *contracts.RunSummary) {
	summary.FinishedAt = time.Now().UTC()
	if err := r.runStore.SaveRun(ctx, summary); err != nil {
		r.logger.WithError(err).Warn("Failed to persist run summary")
	}
}
