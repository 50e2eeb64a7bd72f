package commands

import (
	"fmt"
	"time"

	"github.com/nordwatt/energydwh/internal/contracts"
	"github.com/nordwatt/energydwh/internal/external/eds"
	"github.com/nordwatt/energydwh/internal/warehouse/conform"
	"github.com/nordwatt/energydwh/internal/warehouse/dimensions"
	"github.com/nordwatt/energydwh/internal/warehouse/facts"
	"github.com/nordwatt/energydwh/internal/warehouse/pipeline"
	"github.com/nordwatt/energydwh/internal/warehouse/quality"
	"github.com/nordwatt/energydwh/internal/warehouse/staging"
	"github.com/nordwatt/energydwh/pkg/config"
	"github.com/nordwatt/energydwh/pkg/database"
	"github.com/nordwatt/energydwh/pkg/httputil"
	"github.com/nordwatt/energydwh/pkg/logger"
	"github.com/nordwatt/energydwh/pkg/redis"
)

// app bundles the wired pipeline and its shared resources. Commands
// build one, use what they need and close it on the way out.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	dims     *dimensions.Builder
	dimStore *dimensions.Repository
	ingestor *staging.Ingestor
	staging  *staging.Repository
	gate     *quality.Gate
	runner   *pipeline.Runner
	runStore *pipeline.Repository
}

// newApp loads configuration and wires the full stack.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// Outbound rate limit shared across instances when redis is on,
	// local token bucket otherwise.
	limitCfg := redis.RateLimitConfig{
		Key:    "eds",
		Limit:  cfg.Source.RateLimit,
		Window: cfg.Source.RateLimitWindow,
	}
	limiter := redis.NewRateLimiter(rdb, "ratelimit", limitCfg)

	httpClient := httputil.New(log, cfg.Source.Timeout).
		WithRetry(cfg.Source.MaxRetries, cfg.Source.InitialDelay, cfg.Source.MaxDelay).
		WithRateLimiter(limiter, limitCfg)

	source := eds.NewClient(cfg, httpClient, log)

	dimStore := dimensions.NewRepository(db.Pool)
	stagingStore := staging.NewRepository(db.Pool)
	factStore := facts.NewRepository(db.Pool)
	runStore := pipeline.NewRepository(db.Pool)

	dims := dimensions.NewBuilder(dimStore, cfg.ETL, log)
	ingestor := staging.NewIngestor(source, stagingStore, log)
	mapper := conform.NewMapper(cfg.ETL, log)
	aggregator := facts.NewAggregator(factStore, cfg.ETL, log)
	gate := quality.NewGate(quality.NewRepository(db.Pool), cfg.ETL, log)

	runner := pipeline.NewRunner(
		dims, ingestor, mapper, aggregator, gate,
		dimStore, stagingStore, runStore, log,
	)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		rdb:      rdb,
		dims:     dims,
		dimStore: dimStore,
		ingestor: ingestor,
		staging:  stagingStore,
		gate:     gate,
		runner:   runner,
		runStore: runStore,
	}, nil
}

// close releases shared resources.
func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// parseWindowFlags turns --from/--to date strings into a validated
// window. --to defaults to the day after --from (a one-day window).
func parseWindowFlags(from, to string) (contracts.DateWindow, error) {
	if from == "" {
		return contracts.DateWindow{}, contracts.NewConfigurationError("--from is required (YYYY-MM-DD)")
	}

	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return contracts.DateWindow{}, contracts.NewConfigurationError("invalid --from date: %s", from)
	}

	end := start.AddDate(0, 0, 1)
	if to != "" {
		end, err = time.Parse("2006-01-02", to)
		if err != nil {
			return contracts.DateWindow{}, contracts.NewConfigurationError("invalid --to date: %s", to)
		}
	}

	window := contracts.DateWindow{Start: start, End: end}
	return window, window.Validate()
}
