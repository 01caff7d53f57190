package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"etf-go-api/internal/etf"
	"etf-go-api/internal/logging"
	"etf-go-api/internal/models"
	"etf-go-api/internal/prices"
	"etf-go-api/internal/tracing"
)

// ETFService coordinates the upload pipeline: validate the stored file, then join
// it against the price history.
type ETFService struct {
	validator  *etf.Validator
	calculator *etf.Calculator
	prices     prices.Source
	log        *logging.Logger
}

func NewETFService(band etf.WeightBand, src prices.Source, log *logging.Logger) *ETFService {
	return &ETFService{
		validator:  etf.NewValidator(band),
		calculator: etf.NewCalculator(src),
		prices:     src,
		log:        log.Component("etf_service"),
	}
}

// ProcessFile validates the CSV at path and computes its analytics. Errors are
// returned unchanged; diagnostics are *apperr.Error values.
func (s *ETFService) ProcessFile(ctx context.Context, path string, topN int) (*models.UploadResponse, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "etf.process_file", attribute.Int("top_n", topN))
	var err error
	defer func() { tracing.End(span, err) }()

	table, err := s.validate(ctx, path)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("constituents", table.Len()).Msg("File validation succeeded")

	result, err := s.compute(ctx, table, topN)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("constituents", len(result.Constituents)).
		Int("price_points", len(result.ETFPrices)).
		Dur("elapsed", time.Since(start)).
		Msg("ETF analytics computed")

	return &models.UploadResponse{
		Constituents: result.Constituents,
		TopHoldings:  result.TopHoldings,
		ETFPrices:    result.ETFPrices,
	}, nil
}

func (s *ETFService) validate(ctx context.Context, path string) (*etf.ConstituentTable, error) {
	_, span := tracing.StartSpan(ctx, "etf.validate")
	table, err := s.validator.ValidateFile(path)
	if err == nil {
		span.SetAttributes(attribute.Int("rows", table.Len()))
	}
	tracing.End(span, err)
	return table, err
}

func (s *ETFService) compute(ctx context.Context, table *etf.ConstituentTable, topN int) (*etf.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "etf.compute", attribute.Int("constituents", table.Len()))
	result, err := s.calculator.Compute(ctx, table, topN)
	tracing.End(span, err)
	return result, err
}

type invalidator interface {
	Invalidate()
}

// RefreshPrices drops any memoized price tables and reloads the source so the next
// upload sees fresh prices.
func (s *ETFService) RefreshPrices(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "prices.refresh")
	if inv, ok := s.prices.(invalidator); ok {
		inv.Invalidate()
	}
	_, err := s.prices.Load(ctx)
	tracing.End(span, err)
	if err != nil {
		return fmt.Errorf("reload prices: %w", err)
	}
	s.log.Info().Msg("Price tables reloaded")
	return nil
}

// CheckPrices loads the price source once, for readiness checks.
func (s *ETFService) CheckPrices(ctx context.Context) error {
	_, err := s.prices.Load(ctx)
	return err
}
