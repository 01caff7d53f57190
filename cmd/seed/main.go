// Command seed loads PRICES_FILE into the configured sqlite or firestore price store.
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"etf-go-api/internal/config"
	"etf-go-api/internal/logging"
	"etf-go-api/internal/prices"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "console").Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dst, closer, err := newWriter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("price_source", cfg.PriceSource).Msg("Failed to open price store")
	}
	defer closer.Close()

	start := time.Now()
	n, err := prices.Seed(ctx, prices.NewCSVSource(cfg.PricesFile, cfg.DateColumnName), dst)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PricesFile).Msg("Seeding failed")
	}
	log.Info().
		Int("prices", n).
		Str("file", cfg.PricesFile).
		Str("price_source", cfg.PriceSource).
		Dur("elapsed", time.Since(start)).
		Msg("Price store seeded")
}

type writeCloser interface {
	prices.Writer
	io.Closer
}

func newWriter(ctx context.Context, cfg *config.Config) (prices.Writer, io.Closer, error) {
	var (
		w   writeCloser
		err error
	)
	switch cfg.PriceSource {
	case config.PriceSourceSQLite:
		w, err = prices.NewSQLiteSource(cfg.SQLitePath)
	case config.PriceSourceFirestore:
		w, err = prices.NewFirestoreSource(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
	default:
		return nil, nil, fmt.Errorf("price source %q cannot be seeded, set PRICE_SOURCE to sqlite or firestore", cfg.PriceSource)
	}
	if err != nil {
		return nil, nil, err
	}
	return w, w, nil
}
