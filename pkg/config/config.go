package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server (ops API)
	Port string
	Env  string // development, staging, production

	// Warehouse database
	Database DatabaseConfig

	// Redis (rate limiting)
	Redis RedisConfig

	// Upstream data source
	Source SourceConfig

	// ETL thresholds and tunables
	ETL ETLConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// SourceConfig holds Energi Data Service API configuration.
type SourceConfig struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration

	// Requests allowed per rate-limit window.
	RateLimit       int
	RateLimitWindow time.Duration

	// Retry policy for a single page fetch.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ETLConfig holds thresholds used by the conformance, aggregation and
// quality stages. The literals embedded in the original warehouse scripts
// are surfaced here as defaults.
type ETLConfig struct {
	// Conformance: values outside this range are passed through flagged
	// as suspect, never dropped.
	CO2SuspectMin float64
	CO2SuspectMax float64

	// Quality gate ranges.
	CO2RangeMin      float64
	CO2RangeMax      float64
	PriceRangeMinEUR float64
	PriceRangeMaxEUR float64
	RenewablePctMin  float64
	RenewablePctMax  float64

	// Price spike detection: spot price above the trailing baseline mean
	// times SpikeMultiplier is flagged. The baseline needs at least
	// SpikeMinSamples hours before any flagging happens.
	SpikeBaselineWindow time.Duration
	SpikeMultiplier     float64
	SpikeMinSamples     int

	// Trailing window for per-area price volatility (stddev).
	VolatilityWindow time.Duration

	// Local peak-hour bounds, inclusive.
	PeakStartHour int
	PeakEndHour   int

	// Cron expression for the scheduled incremental load.
	Schedule string
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8097"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Source: SourceConfig{
			BaseURL:         getEnv("EDS_BASE_URL", "https://api.energidataservice.dk"),
			PageSize:        getEnvAsInt("EDS_PAGE_SIZE", 10000),
			Timeout:         getEnvAsDuration("EDS_TIMEOUT", "60s"),
			RateLimit:       getEnvAsInt("EDS_RATE_LIMIT", 20),
			RateLimitWindow: getEnvAsDuration("EDS_RATE_LIMIT_WINDOW", "1m"),
			MaxRetries:      getEnvAsInt("EDS_MAX_RETRIES", 3),
			InitialDelay:    getEnvAsDuration("EDS_RETRY_INITIAL_DELAY", "1s"),
			MaxDelay:        getEnvAsDuration("EDS_RETRY_MAX_DELAY", "10s"),
		},

		ETL: ETLConfig{
			CO2SuspectMin:       getEnvAsFloat("ETL_CO2_SUSPECT_MIN", 0),
			CO2SuspectMax:       getEnvAsFloat("ETL_CO2_SUSPECT_MAX", 2000),
			CO2RangeMin:         getEnvAsFloat("ETL_CO2_RANGE_MIN", 0),
			CO2RangeMax:         getEnvAsFloat("ETL_CO2_RANGE_MAX", 1000),
			PriceRangeMinEUR:    getEnvAsFloat("ETL_PRICE_RANGE_MIN_EUR", -1000),
			PriceRangeMaxEUR:    getEnvAsFloat("ETL_PRICE_RANGE_MAX_EUR", 5000),
			RenewablePctMin:     0,
			RenewablePctMax:     100,
			SpikeBaselineWindow: getEnvAsDuration("ETL_SPIKE_BASELINE_WINDOW", "720h"),
			SpikeMultiplier:     getEnvAsFloat("ETL_SPIKE_MULTIPLIER", 3.0),
			SpikeMinSamples:     getEnvAsInt("ETL_SPIKE_MIN_SAMPLES", 24),
			VolatilityWindow:    getEnvAsDuration("ETL_VOLATILITY_WINDOW", "24h"),
			PeakStartHour:       getEnvAsInt("ETL_PEAK_START_HOUR", 8),
			PeakEndHour:         getEnvAsInt("ETL_PEAK_END_HOUR", 20),
			Schedule:            getEnv("ETL_SCHEDULE", "0 0 3 * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.ETL.SpikeMultiplier <= 1 {
		return fmt.Errorf("ETL_SPIKE_MULTIPLIER must be greater than 1")
	}

	if c.ETL.PeakStartHour < 0 || c.ETL.PeakEndHour > 23 || c.ETL.PeakStartHour > c.ETL.PeakEndHour {
		return fmt.Errorf("invalid peak hour bounds: %d-%d", c.ETL.PeakStartHour, c.ETL.PeakEndHour)
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
