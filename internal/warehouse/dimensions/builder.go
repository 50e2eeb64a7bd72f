package dimensions

import (
	"context"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/logger"
)

// Builder derives and maintains the date, time and price-area dimensions.
// All operations are idempotent; re-running over an overlapping span
// inserts only what is missing.
type Builder struct {
	store  contracts.DimensionStore
	etl    config.ETLConfig
	logger *logger.Logger
}

// NewBuilder creates a dimension builder.
func NewBuilder(store contracts.DimensionStore, etl config.ETLConfig, log *logger.Logger) *Builder {
	return &Builder{
		store:  store,
		etl:    etl,
		logger: log.WithField("module", "dimensions"),
	}
}

// DefaultPriceAreas is the static price-area reference set: the two
// Danish bidding zones plus the neighbouring areas that appear in the
// spot price feed.
var DefaultPriceAreas = []contracts.PriceArea{
	{Key: 1, Code: "DK1", IsDanish: true},
	{Key: 2, Code: "DK2", IsDanish: true},
	{Key: 3, Code: "DE", IsDanish: false},
	{Key: 4, Code: "NO2", IsDanish: false},
	{Key: 5, Code: "SE3", IsDanish: false},
	{Key: 6, Code: "SE4", IsDanish: false},
}

// EnsureDateRange inserts a DateDim row for every calendar date in
// [start, end) not already present. Fails with a ConfigurationError when
// the window is inverted.
func (b *Builder) EnsureDateRange(ctx context.Context, window contracts.DateWindow) (int, error) {
	if err := window.Validate(); err != nil {
		return 0, err
	}

	rows := DateRows(window)
	inserted, err := b.store.EnsureDates(ctx, rows)
	if err != nil {
		return 0, err
	}

	b.logger.WithFields(map[string]interface{}{
		"window":   window.String(),
		"rows":     len(rows),
		"inserted": inserted,
	}).Info("Date dimension ensured")

	return inserted, nil
}

// EnsureTimeBuckets generates the fixed time-of-day enumeration for the
// grain (24 hourly rows or 288 five-minute rows). A second call is a
// no-op.
func (b *Builder) EnsureTimeBuckets(ctx context.Context, grain contracts.Grain) (int, error) {
	if grain != contracts.GrainHour && grain != contracts.GrainFiveMinute {
		return 0, contracts.NewConfigurationError("unknown grain: %s", grain)
	}

	rows := TimeRows(grain, b.etl.PeakStartHour, b.etl.PeakEndHour)
	inserted, err := b.store.EnsureTimeBuckets(ctx, rows)
	if err != nil {
		return 0, err
	}

	b.logger.WithFields(map[string]interface{}{
		"grain":    grain,
		"rows":     len(rows),
		"inserted": inserted,
	}).Info("Time dimension ensured")

	return inserted, nil
}

// EnsurePriceAreas upserts the static price-area reference set.
func (b *Builder) EnsurePriceAreas(ctx context.Context, areas []contracts.PriceArea) (int, error) {
	if len(areas) == 0 {
		areas = DefaultPriceAreas
	}

	inserted, err := b.store.EnsurePriceAreas(ctx, areas)
	if err != nil {
		return 0, err
	}

	b.logger.WithFields(map[string]interface{}{
		"areas":    len(areas),
		"inserted": inserted,
	}).Info("Price area dimension ensured")

	return inserted, nil
}

// DateRows generates one DateDim row per calendar date in the window.
// Pure; the key is deterministic from the date.
func DateRows(window contracts.DateWindow) []contracts.DateDim {
	days := window.Days()
	rows := make([]contracts.DateDim, 0, len(days))
	for _, d := range days {
		rows = append(rows, DateRow(d))
	}
	return rows
}

// DateRow derives the DateDim attributes for a single date.
func DateRow(d time.Time) contracts.DateDim {
	weekday := (int(d.Weekday()) + 6) % 7 // 0 = Monday
	return contracts.DateDim{
		DateKey:   contracts.DateKeyOf(d),
		Date:      time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		Year:      d.Year(),
		Quarter:   (int(d.Month())-1)/3 + 1,
		Month:     int(d.Month()),
		Day:       d.Day(),
		DayOfWeek: weekday,
		IsWeekend: weekday >= 5,
	}
}

// TimeRows generates the full bucket enumeration for a grain. Peak hours
// are [peakStart, peakEnd] inclusive, local time.
func TimeRows(grain contracts.Grain, peakStart, peakEnd int) []contracts.TimeDim {
	step := int(grain.Step().Minutes())
	rows := make([]contracts.TimeDim, 0, grain.BucketCount())

	for key := 0; key < grain.BucketCount(); key++ {
		minutes := key * step
		hour := minutes / 60
		rows = append(rows, contracts.TimeDim{
			TimeKey:    key,
			Grain:      grain,
			Hour:       hour,
			Minute:     minutes % 60,
			IsPeakHour: hour >= peakStart && hour <= peakEnd,
		})
	}

	return rows
}
