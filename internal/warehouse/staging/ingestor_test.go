package staging

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// fakeSource delivers its configured pages in order, then returns err.
// An err with pages before it models a fetch failing mid-pagination.
type fakeSource struct {
	co2Pages        [][]contracts.RawCO2Record
	productionPages [][]contracts.RawProductionRecord
	pricePages      [][]contracts.RawPriceRecord
	err             error
}

func (f *fakeSource) FetchCO2(_ context.Context, _ contracts.DateWindow, sink func([]contracts.RawCO2Record) error) error {
	for _, page := range f.co2Pages {
		if err := sink(page); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeSource) FetchProduction(_ context.Context, _ contracts.DateWindow, sink func([]contracts.RawProductionRecord) error) error {
	for _, page := range f.productionPages {
		if err := sink(page); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeSource) FetchPrices(_ context.Context, _ contracts.DateWindow, sink func([]contracts.RawPriceRecord) error) error {
	for _, page := range f.pricePages {
		if err := sink(page); err != nil {
			return err
		}
	}
	return f.err
}

// fakeStagingStore deduplicates on (UTC timestamp, price area), mirroring
// the repository's ON CONFLICT DO NOTHING behavior.
type fakeStagingStore struct {
	co2        map[string]contracts.RawCO2Record
	production map[string]contracts.RawProductionRecord
	prices     map[string]contracts.RawPriceRecord
	saveErr    error
}

func newFakeStagingStore() *fakeStagingStore {
	return &fakeStagingStore{
		co2:        make(map[string]contracts.RawCO2Record),
		production: make(map[string]contracts.RawProductionRecord),
		prices:     make(map[string]contracts.RawPriceRecord),
	}
}

func stagingKey(ts time.Time, area string) string {
	return ts.UTC().Format(time.RFC3339) + "/" + area
}

func (f *fakeStagingStore) SaveCO2(_ context.Context, records []contracts.RawCO2Record) (int, int, error) {
	if f.saveErr != nil {
		return 0, 0, f.saveErr
	}
	persisted := 0
	for _, r := range records {
		key := stagingKey(r.TimestampUTC, r.PriceArea)
		if _, ok := f.co2[key]; !ok {
			f.co2[key] = r
			persisted++
		}
	}
	return persisted, len(records) - persisted, nil
}

func (f *fakeStagingStore) SaveProduction(_ context.Context, records []contracts.RawProductionRecord) (int, int, error) {
	if f.saveErr != nil {
		return 0, 0, f.saveErr
	}
	persisted := 0
	for _, r := range records {
		key := stagingKey(r.TimestampUTC, r.PriceArea)
		if _, ok := f.production[key]; !ok {
			f.production[key] = r
			persisted++
		}
	}
	return persisted, len(records) - persisted, nil
}

func (f *fakeStagingStore) SavePrices(_ context.Context, records []contracts.RawPriceRecord) (int, int, error) {
	if f.saveErr != nil {
		return 0, 0, f.saveErr
	}
	persisted := 0
	for _, r := range records {
		key := stagingKey(r.TimestampUTC, r.PriceArea)
		if _, ok := f.prices[key]; !ok {
			f.prices[key] = r
			persisted++
		}
	}
	return persisted, len(records) - persisted, nil
}

func (f *fakeStagingStore) LoadCO2(_ context.Context, _ contracts.DateWindow) ([]contracts.RawCO2Record, error) {
	var out []contracts.RawCO2Record
	for _, r := range f.co2 {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStagingStore) LoadProduction(_ context.Context, _ contracts.DateWindow) ([]contracts.RawProductionRecord, error) {
	var out []contracts.RawProductionRecord
	for _, r := range f.production {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStagingStore) LoadPrices(_ context.Context, _ contracts.DateWindow) ([]contracts.RawPriceRecord, error) {
	var out []contracts.RawPriceRecord
	for _, r := range f.prices {
		out = append(out, r)
	}
	return out, nil
}

func testWindow() contracts.DateWindow {
	return contracts.DateWindow{
		Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}
}

func co2Sample(minute int, area string) contracts.RawCO2Record {
	ts := time.Date(2024, 6, 1, 0, minute, 0, 0, time.UTC)
	return contracts.RawCO2Record{
		TimestampUTC:   ts,
		TimestampLocal: ts.Add(2 * time.Hour),
		PriceArea:      area,
		CO2Emission:    85.0,
	}
}

func TestFetchWindowCO2(t *testing.T) {
	source := &fakeSource{co2Pages: [][]contracts.RawCO2Record{{
		co2Sample(0, "DK1"),
		co2Sample(5, "DK1"),
		co2Sample(0, "DK2"),
	}}}
	store := newFakeStagingStore()
	ingestor := NewIngestor(source, store, logger.NewWriter(io.Discard, "error"))

	stats, err := ingestor.FetchWindow(context.Background(), contracts.DatasetCO2, testWindow())
	require.NoError(t, err)

	assert.Equal(t, contracts.DatasetCO2, stats.Dataset)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 3, stats.Persisted)
	assert.Equal(t, 0, stats.Skipped)
	assert.False(t, stats.Failed)
	assert.Len(t, store.co2, 3)
}

func TestFetchWindowReingestSkipsDuplicates(t *testing.T) {
	source := &fakeSource{co2Pages: [][]contracts.RawCO2Record{{
		co2Sample(0, "DK1"),
		co2Sample(5, "DK1"),
	}}}
	store := newFakeStagingStore()
	ingestor := NewIngestor(source, store, logger.NewWriter(io.Discard, "error"))

	_, err := ingestor.FetchWindow(context.Background(), contracts.DatasetCO2, testWindow())
	require.NoError(t, err)

	// Second pass over the same window plus one new sample.
	source.co2Pages = append(source.co2Pages, []contracts.RawCO2Record{co2Sample(10, "DK1")})
	stats, err := ingestor.FetchWindow(context.Background(), contracts.DatasetCO2, testWindow())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 1, stats.Persisted)
	assert.Equal(t, 2, stats.Skipped)
	assert.Len(t, store.co2, 3)
}

func TestFetchWindowSourceUnavailable(t *testing.T) {
	source := &fakeSource{err: &contracts.SourceUnavailableError{
		Dataset: contracts.DatasetPrices,
		Err:     io.ErrUnexpectedEOF,
	}}
	store := newFakeStagingStore()
	ingestor := NewIngestor(source, store, logger.NewWriter(io.Discard, "error"))

	stats, err := ingestor.FetchWindow(context.Background(), contracts.DatasetPrices, testWindow())
	require.Error(t, err)
	assert.True(t, contracts.IsSourceUnavailable(err))

	assert.True(t, stats.Failed)
	assert.NotEmpty(t, stats.Error)
	assert.Equal(t, 0, stats.Persisted)
}

func TestFetchWindowKeepsPagesStagedBeforeFailure(t *testing.T) {
	// First page lands, then the source dies mid-pagination. The staged
	// page must survive the failure.
	source := &fakeSource{
		co2Pages: [][]contracts.RawCO2Record{{
			co2Sample(0, "DK1"),
			co2Sample(5, "DK1"),
		}},
		err: &contracts.SourceUnavailableError{
			Dataset: contracts.DatasetCO2,
			Err:     io.ErrUnexpectedEOF,
		},
	}
	store := newFakeStagingStore()
	ingestor := NewIngestor(source, store, logger.NewWriter(io.Discard, "error"))

	stats, err := ingestor.FetchWindow(context.Background(), contracts.DatasetCO2, testWindow())
	require.Error(t, err)
	assert.True(t, contracts.IsSourceUnavailable(err))

	assert.True(t, stats.Failed)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 2, stats.Persisted)
	assert.Len(t, store.co2, 2)

	// Re-running the window after the source recovers dedups the page
	// that was already staged.
	source.err = nil
	source.co2Pages = append(source.co2Pages, []contracts.RawCO2Record{co2Sample(10, "DK1")})

	stats, err = ingestor.FetchWindow(context.Background(), contracts.DatasetCO2, testWindow())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Persisted)
	assert.Equal(t, 2, stats.Skipped)
	assert.Len(t, store.co2, 3)
}

func TestFetchWindowInvertedWindow(t *testing.T) {
	ingestor := NewIngestor(&fakeSource{}, newFakeStagingStore(), logger.NewWriter(io.Discard, "error"))

	window := contracts.DateWindow{
		Start: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	stats, err := ingestor.FetchWindow(context.Background(), contracts.DatasetCO2, window)
	require.Error(t, err)
	assert.True(t, contracts.IsConfigurationError(err))
	assert.True(t, stats.Failed)
}

func TestFetchWindowProductionAndPrices(t *testing.T) {
	hour := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{
		productionPages: [][]contracts.RawProductionRecord{{{
			TimestampUTC:   hour,
			TimestampLocal: hour.Add(2 * time.Hour),
			PriceArea:      "DK1",
			CentralPower:   400,
		}}},
		pricePages: [][]contracts.RawPriceRecord{{{
			TimestampUTC:   hour,
			TimestampLocal: hour.Add(2 * time.Hour),
			PriceArea:      "DK1",
			SpotPriceDKK:   372.5,
			SpotPriceEUR:   49.9,
		}}},
	}
	store := newFakeStagingStore()
	ingestor := NewIngestor(source, store, logger.NewWriter(io.Discard, "error"))

	stats, err := ingestor.FetchWindow(context.Background(), contracts.DatasetProduction, testWindow())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Persisted)

	stats, err = ingestor.FetchWindow(context.Background(), contracts.DatasetPrices, testWindow())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Persisted)
}
