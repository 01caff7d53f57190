package prices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"etf-go-api/pkg/alphavantage"
	"etf-go-api/pkg/yahoo"
)

// YahooFetcher is the part of the Yahoo client the market source needs.
type YahooFetcher interface {
	GetDailyCloses(ctx context.Context, symbol string, days int) ([]yahoo.Close, error)
}

// AlphaVantageFetcher is the part of the Alpha Vantage client the market source needs.
type AlphaVantageFetcher interface {
	GetDailyCloses(ctx context.Context, symbol string) ([]alphavantage.Close, error)
}

var errProviderDisabled = errors.New("provider not configured")

// MarketConfig tunes the remote market data source.
type MarketConfig struct {
	RangeDays            int
	MaxConcurrentFetches int
	FetchTimeout         time.Duration
}

// MarketSource builds price tables from remote market data providers, one symbol
// at a time. Both providers are queried concurrently and the first usable answer wins.
type MarketSource struct {
	yahoo  YahooFetcher
	alpha  AlphaVantageFetcher
	config MarketConfig
}

// NewMarketSource creates a market source. alpha may be nil when no Alpha Vantage key
// is configured.
func NewMarketSource(y YahooFetcher, alpha AlphaVantageFetcher, cfg MarketConfig) *MarketSource {
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	return &MarketSource{yahoo: y, alpha: alpha, config: cfg}
}

// Load has no symbol universe to fetch and returns an empty table.
func (s *MarketSource) Load(ctx context.Context) (*Table, error) {
	return FromObservations(nil), nil
}

// LoadSymbols fetches symbols concurrently with bounded parallelism. Symbols neither
// provider knows are left out of the table.
func (s *MarketSource) LoadSymbols(ctx context.Context, symbols []string) (*Table, error) {
	var (
		mu  sync.Mutex
		obs []Observation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrentFetches)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.config.FetchTimeout)
			defer cancel()

			data, err := s.fetchSingle(fetchCtx, symbol)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return fmt.Errorf("failed to fetch %s: %w", symbol, err)
			}

			mu.Lock()
			obs = append(obs, data...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return FromObservations(obs), nil
}

// fetchSingle races both providers for one symbol and falls back to the slower one
// when the first answer is an error.
func (s *MarketSource) fetchSingle(ctx context.Context, symbol string) ([]Observation, error) {
	type result struct {
		data []Observation
		err  error
	}

	alphaCh := make(chan result, 1)
	yahooCh := make(chan result, 1)

	go func() {
		if s.alpha == nil {
			alphaCh <- result{nil, errProviderDisabled}
			return
		}
		closes, err := s.alpha.GetDailyCloses(ctx, symbol)
		if err != nil {
			alphaCh <- result{nil, err}
			return
		}
		data := make([]Observation, len(closes))
		for i, c := range closes {
			data[i] = Observation{Date: c.Date, Symbol: symbol, Price: c.Price}
		}
		alphaCh <- result{data, nil}
	}()

	go func() {
		closes, err := s.yahoo.GetDailyCloses(ctx, symbol, s.config.RangeDays)
		if err != nil {
			yahooCh <- result{nil, err}
			return
		}
		data := make([]Observation, len(closes))
		for i, c := range closes {
			data[i] = Observation{Date: c.Date, Symbol: symbol, Price: c.Price}
		}
		yahooCh <- result{data, nil}
	}()

	var first, second result
	select {
	case first = <-alphaCh:
		if first.err == nil {
			return first.data, nil
		}
		second = <-yahooCh
	case first = <-yahooCh:
		if first.err == nil {
			return first.data, nil
		}
		second = <-alphaCh
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if second.err == nil {
		return second.data, nil
	}
	var failures []error
	for _, err := range []error{first.err, second.err} {
		if !isNotFound(err) {
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, yahoo.ErrNotFound)
	}
	return nil, errors.Join(failures...)
}

func isNotFound(err error) bool {
	return errors.Is(err, yahoo.ErrNotFound) ||
		errors.Is(err, alphavantage.ErrNotFound) ||
		errors.Is(err, errProviderDisabled)
}
