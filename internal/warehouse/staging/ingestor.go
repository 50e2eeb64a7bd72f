package staging

import (
	"context"
	"fmt"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Ingestor pulls a date window per dataset from the upstream source and
// persists it to raw staging page by page as the source delivers them,
// so a fetch that fails partway through a window keeps the pages already
// staged and a full-history load never holds the whole window in memory.
// Duplicate (timestamp, price area) keys are skipped, so overlapping
// windows and re-runs after a partial failure are safe to re-ingest.
type Ingestor struct {
	source contracts.SourceClient
	store  contracts.StagingStore
	logger *logger.Logger
}

// NewIngestor creates a raw ingestor.
func NewIngestor(source contracts.SourceClient, store contracts.StagingStore, log *logger.Logger) *Ingestor {
	return &Ingestor{
		source: source,
		store:  store,
		logger: log.WithField("module", "ingestor"),
	}
}

// FetchWindow ingests one dataset's window. The returned stats always
// carry whatever counts were achieved, even when err is non-nil.
func (i *Ingestor) FetchWindow(ctx context.Context, dataset contracts.Dataset, window contracts.DateWindow) (contracts.IngestStats, error) {
	stats := contracts.IngestStats{Dataset: dataset}

	if err := window.Validate(); err != nil {
		stats.Failed = true
		stats.Error = err.Error()
		return stats, err
	}

	var persisted, skipped, fetched int
	var err error

	switch dataset {
	case contracts.DatasetCO2:
		err = i.source.FetchCO2(ctx, window, func(page []contracts.RawCO2Record) error {
			fetched += len(page)
			p, s, saveErr := i.store.SaveCO2(ctx, page)
			persisted += p
			skipped += s
			return saveErr
		})
	case contracts.DatasetProduction:
		err = i.source.FetchProduction(ctx, window, func(page []contracts.RawProductionRecord) error {
			fetched += len(page)
			p, s, saveErr := i.store.SaveProduction(ctx, page)
			persisted += p
			skipped += s
			return saveErr
		})
	case contracts.DatasetPrices:
		err = i.source.FetchPrices(ctx, window, func(page []contracts.RawPriceRecord) error {
			fetched += len(page)
			p, s, saveErr := i.store.SavePrices(ctx, page)
			persisted += p
			skipped += s
			return saveErr
		})
	default:
		err = contracts.NewConfigurationError("unknown dataset: %s", dataset)
	}

	stats.Fetched = fetched
	stats.Persisted = persisted
	stats.Skipped = skipped

	if err != nil {
		stats.Failed = true
		stats.Error = err.Error()
		i.logger.WithError(err).WithFields(map[string]interface{}{
			"dataset": dataset,
			"window":  window.String(),
		}).Error("Window ingest failed")
		return stats, fmt.Errorf("ingest %s %s: %w", dataset, window, err)
	}

	i.logger.WithFields(map[string]interface{}{
		"dataset":   dataset,
		"window":    window.String(),
		"fetched":   fetched,
		"persisted": persisted,
		"skipped":   skipped,
	}).Info("Window ingested")

	return stats, nil
}
