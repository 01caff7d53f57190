package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT", "LOG_DIR", "TRACING_ENABLED",
		"DEFAULT_TOP_HOLDINGS_COUNT", "WEIGHT_SUM_MIN", "WEIGHT_SUM_MAX", "PRICE_SOURCE",
		"PRICES_FILE", "DATE_COLUMN_NAME", "SQLITE_PATH", "FIRESTORE_PROJECT_ID",
		"FIRESTORE_COLLECTION", "ALPHA_VANTAGE_KEY", "MARKET_RANGE_DAYS",
		"MAX_CONCURRENT_FETCHES", "PRICE_CACHE_TTL_MINUTES", "UPLOAD_BODY_LIMIT_MB",
		"CORS_ALLOW_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 5, cfg.DefaultTopHoldingsCount)
	assert.Equal(t, PriceSourceCSV, cfg.PriceSource)
	assert.Equal(t, "DATE", cfg.DateColumnName)
	assert.Equal(t, time.Hour, cfg.PriceCacheTTL())

	lo, hi, err := cfg.WeightBand()
	require.NoError(t, err)
	assert.Equal(t, "0.95", lo.String())
	assert.Equal(t, "1.05", hi.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("PRICE_SOURCE", "SQLite")
	t.Setenv("DEFAULT_TOP_HOLDINGS_COUNT", "3")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("PRICE_CACHE_TTL_MINUTES", "0")
	t.Setenv("LOG_DIR", "logs")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, PriceSourceSQLite, cfg.PriceSource)
	assert.Equal(t, 3, cfg.DefaultTopHoldingsCount)
	assert.True(t, cfg.TracingEnabled)
	assert.Zero(t, cfg.PriceCacheTTL())
	assert.Equal(t, "logs", cfg.LogDir)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nweight_sum_min: \"0.9\"\nlog_level: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "0.9", cfg.WeightSumMin)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad int", map[string]string{"DEFAULT_TOP_HOLDINGS_COUNT": "five"}, "must be an integer"},
		{"bad bool", map[string]string{"TRACING_ENABLED": "maybe"}, "must be a boolean"},
		{"unknown source", map[string]string{"PRICE_SOURCE": "ftp"}, "unknown price_source"},
		{"inverted band", map[string]string{"WEIGHT_SUM_MIN": "1.1"}, "must be below"},
		{"bad band", map[string]string{"WEIGHT_SUM_MAX": "lots"}, "invalid weight_sum_max"},
		{"missing file", map[string]string{"CONFIG_FILE": "/nonexistent/config.yaml"}, "read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidate_SourceRequirements(t *testing.T) {
	cfg := Default()
	cfg.PriceSource = PriceSourceFirestore
	cfg.FirestoreProject = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.PriceSource = PriceSourceMarket
	cfg.MarketRangeDays = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.UploadBodyLimitMB = 0
	assert.Error(t, cfg.Validate())
}
