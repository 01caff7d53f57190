package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Price source backends.
const (
	PriceSourceCSV       = "csv"
	PriceSourceSQLite    = "sqlite"
	PriceSourceFirestore = "firestore"
	PriceSourceMarket    = "market"
)

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	LogDir      string `yaml:"log_dir"`

	TracingEnabled bool `yaml:"tracing_enabled"`

	DefaultTopHoldingsCount int    `yaml:"default_top_holdings_count"`
	WeightSumMin            string `yaml:"weight_sum_min"`
	WeightSumMax            string `yaml:"weight_sum_max"`

	PriceSource          string `yaml:"price_source"`
	PricesFile           string `yaml:"prices_file"`
	DateColumnName       string `yaml:"date_column_name"`
	SQLitePath           string `yaml:"sqlite_path"`
	FirestoreProject     string `yaml:"firestore_project_id"`
	FirestoreCollection  string `yaml:"firestore_collection"`
	AlphaVantageKey      string `yaml:"alpha_vantage_key"`
	MarketRangeDays      int    `yaml:"market_range_days"`
	MaxConcurrentFetches int    `yaml:"max_concurrent_fetches"`
	PriceCacheTTLMinutes int    `yaml:"price_cache_ttl_minutes"`

	UploadBodyLimitMB int    `yaml:"upload_body_limit_mb"`
	CORSAllowOrigins  string `yaml:"cors_allow_origins"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                    "5000",
		Environment:             "production",
		LogLevel:                "info",
		LogFormat:               "console",
		DefaultTopHoldingsCount: 5,
		WeightSumMin:            "0.95",
		WeightSumMax:            "1.05",
		PriceSource:             PriceSourceCSV,
		PricesFile:              "data/prices.csv",
		DateColumnName:          "DATE",
		SQLitePath:              "data/prices.db",
		FirestoreProject:        "etf-analytics",
		FirestoreCollection:     "prices",
		MarketRangeDays:         90,
		MaxConcurrentFetches:    10,
		PriceCacheTTLMinutes:    60,
		UploadBodyLimitMB:       4,
		CORSAllowOrigins:        "*",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and the environment (a .env file is read first if present).
// Environment values win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.WeightSumMin = getEnv("WEIGHT_SUM_MIN", c.WeightSumMin)
	c.WeightSumMax = getEnv("WEIGHT_SUM_MAX", c.WeightSumMax)
	c.PriceSource = strings.ToLower(getEnv("PRICE_SOURCE", c.PriceSource))
	c.PricesFile = getEnv("PRICES_FILE", c.PricesFile)
	c.DateColumnName = getEnv("DATE_COLUMN_NAME", c.DateColumnName)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.FirestoreProject = getEnv("FIRESTORE_PROJECT_ID", c.FirestoreProject)
	c.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", c.FirestoreCollection)
	c.AlphaVantageKey = getEnv("ALPHA_VANTAGE_KEY", c.AlphaVantageKey)
	c.CORSAllowOrigins = getEnv("CORS_ALLOW_ORIGINS", c.CORSAllowOrigins)

	var err error
	if c.TracingEnabled, err = getEnvBool("TRACING_ENABLED", c.TracingEnabled); err != nil {
		return err
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"DEFAULT_TOP_HOLDINGS_COUNT", &c.DefaultTopHoldingsCount},
		{"MARKET_RANGE_DAYS", &c.MarketRangeDays},
		{"MAX_CONCURRENT_FETCHES", &c.MaxConcurrentFetches},
		{"PRICE_CACHE_TTL_MINUTES", &c.PriceCacheTTLMinutes},
		{"UPLOAD_BODY_LIMIT_MB", &c.UploadBodyLimitMB},
	}
	for _, v := range ints {
		if *v.dst, err = getEnvInt(v.key, *v.dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	lo, hi, err := c.WeightBand()
	if err != nil {
		return err
	}
	if !lo.IsPositive() {
		return fmt.Errorf("weight_sum_min must be positive, got %s", lo)
	}
	if !lo.LessThan(hi) {
		return fmt.Errorf("weight_sum_min (%s) must be below weight_sum_max (%s)", lo, hi)
	}
	if c.DefaultTopHoldingsCount < 0 {
		return fmt.Errorf("default_top_holdings_count must not be negative, got %d", c.DefaultTopHoldingsCount)
	}
	switch c.PriceSource {
	case PriceSourceCSV:
		if c.PricesFile == "" {
			return errors.New("prices_file is required for the csv price source")
		}
	case PriceSourceSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite price source")
		}
	case PriceSourceFirestore:
		if c.FirestoreProject == "" {
			return errors.New("firestore_project_id is required for the firestore price source")
		}
	case PriceSourceMarket:
		if c.MarketRangeDays <= 0 {
			return fmt.Errorf("market_range_days must be positive, got %d", c.MarketRangeDays)
		}
	default:
		return fmt.Errorf("unknown price_source %q", c.PriceSource)
	}
	if c.UploadBodyLimitMB <= 0 {
		return fmt.Errorf("upload_body_limit_mb must be positive, got %d", c.UploadBodyLimitMB)
	}
	return nil
}

// WeightBand parses the accepted weight-sum bounds.
func (c *Config) WeightBand() (lo, hi decimal.Decimal, err error) {
	if lo, err = decimal.NewFromString(c.WeightSumMin); err != nil {
		return lo, hi, fmt.Errorf("invalid weight_sum_min %q", c.WeightSumMin)
	}
	if hi, err = decimal.NewFromString(c.WeightSumMax); err != nil {
		return lo, hi, fmt.Errorf("invalid weight_sum_max %q", c.WeightSumMax)
	}
	return lo, hi, nil
}

// PriceCacheTTL is zero when caching is disabled.
func (c *Config) PriceCacheTTL() time.Duration {
	if c.PriceCacheTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.PriceCacheTTLMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, value)
	}
	return b, nil
}
