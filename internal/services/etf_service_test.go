package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etf-go-api/internal/apperr"
	"etf-go-api/internal/etf"
	"etf-go-api/internal/logging"
	"etf-go-api/internal/models"
	"etf-go-api/internal/prices"
)

type csvPrices string

func (c csvPrices) Load(ctx context.Context) (*prices.Table, error) {
	return prices.ReadCSV(strings.NewReader(string(c)), "DATE")
}

type failingPrices struct{}

func (failingPrices) Load(ctx context.Context) (*prices.Table, error) {
	return nil, errors.New("price store offline")
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "etf.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newService(src prices.Source) *ETFService {
	return NewETFService(etf.DefaultWeightBand(), src, logging.NewSilent())
}

func TestProcessFile(t *testing.T) {
	svc := newService(csvPrices("DATE,AAA,BBB\n2024-01-01,10,20\n"))

	resp, err := svc.ProcessFile(context.Background(), writeFile(t, "name,weight\nAAA,0.6\nBBB,0.4\n"), 5)
	require.NoError(t, err)
	assert.Equal(t, []models.ETFPrice{{Date: "2024-01-01", Price: 14}}, resp.ETFPrices)
	assert.Len(t, resp.Constituents, 2)
	assert.Equal(t, "BBB", resp.TopHoldings[0].Name)
}

func TestProcessFile_ValidationFailure(t *testing.T) {
	svc := newService(csvPrices("DATE,AAA\n2024-01-01,10\n"))

	_, err := svc.ProcessFile(context.Background(), writeFile(t, "name,weight\nAAA,0.5\n"), 5)
	assert.True(t, apperr.Is(err, apperr.KindWeightSumOutOfTolerance))
}

func TestProcessFile_MissingFile(t *testing.T) {
	svc := newService(csvPrices("DATE,AAA\n2024-01-01,10\n"))

	_, err := svc.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "gone.csv"), 5)
	diag, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeFileNotFound, diag.Code)
}

func TestProcessFile_PriceSourceFailure(t *testing.T) {
	svc := newService(failingPrices{})

	_, err := svc.ProcessFile(context.Background(), writeFile(t, "name,weight\nAAA,1\n"), 5)
	require.Error(t, err)
	_, ok := apperr.As(err)
	assert.False(t, ok)

	assert.Error(t, svc.CheckPrices(context.Background()))
}

type countingPrices struct {
	loads atomic.Int32
}

func (c *countingPrices) Load(ctx context.Context) (*prices.Table, error) {
	c.loads.Add(1)
	return prices.ReadCSV(strings.NewReader("DATE,AAA\n2024-01-01,10\n"), "DATE")
}

func TestRefreshPrices_InvalidatesCache(t *testing.T) {
	src := &countingPrices{}
	cached := prices.NewCachedSource(src, time.Hour)
	defer cached.Close()
	svc := newService(cached)

	require.NoError(t, svc.CheckPrices(context.Background()))
	require.NoError(t, svc.CheckPrices(context.Background()))
	assert.Equal(t, int32(1), src.loads.Load())

	require.NoError(t, svc.RefreshPrices(context.Background()))
	assert.Equal(t, int32(2), src.loads.Load(), "refresh reloads past the cache")

	require.NoError(t, svc.CheckPrices(context.Background()))
	assert.Equal(t, int32(2), src.loads.Load(), "reloaded table is cached again")
}

func TestRefreshPrices_SourceFailure(t *testing.T) {
	err := newService(failingPrices{}).RefreshPrices(context.Background())
	assert.ErrorContains(t, err, "price store offline")
}
