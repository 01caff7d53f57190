package main

import (
	"context"
	"fmt"
	"io"

	"etf-go-api/internal/config"
	"etf-go-api/internal/logging"
	"etf-go-api/internal/prices"
	"etf-go-api/pkg/alphavantage"
	"etf-go-api/pkg/yahoo"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newPriceSource builds the configured backend, wrapped in a memoizing cache when a
// TTL is set. The returned closer releases everything the source holds.
func newPriceSource(ctx context.Context, cfg *config.Config, log *logging.Logger) (prices.Source, io.Closer, error) {
	var (
		src    prices.Source
		closer io.Closer = closerFunc(func() error { return nil })
	)

	switch cfg.PriceSource {
	case config.PriceSourceCSV:
		src = prices.NewCSVSource(cfg.PricesFile, cfg.DateColumnName)
	case config.PriceSourceSQLite:
		s, err := prices.NewSQLiteSource(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		src, closer = s, s
	case config.PriceSourceFirestore:
		s, err := prices.NewFirestoreSource(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
		if err != nil {
			return nil, nil, err
		}
		src, closer = s, s
	case config.PriceSourceMarket:
		var alpha prices.AlphaVantageFetcher
		if cfg.AlphaVantageKey != "" {
			alpha = alphavantage.NewClient(cfg.AlphaVantageKey, alphavantage.DefaultBaseURL)
		} else {
			log.Warn().Msg("ALPHA_VANTAGE_KEY not set, market prices come from Yahoo only")
		}
		src = prices.NewMarketSource(yahoo.NewClient(yahoo.DefaultBaseURL), alpha, prices.MarketConfig{
			RangeDays:            cfg.MarketRangeDays,
			MaxConcurrentFetches: cfg.MaxConcurrentFetches,
		})
	default:
		return nil, nil, fmt.Errorf("unknown price source %q", cfg.PriceSource)
	}

	ttl := cfg.PriceCacheTTL()
	if ttl <= 0 {
		return src, closer, nil
	}
	cached := prices.NewCachedSource(src, ttl)
	inner := closer
	return cached, closerFunc(func() error {
		cached.Close()
		return inner.Close()
	}), nil
}
