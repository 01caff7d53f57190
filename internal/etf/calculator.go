package etf

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"etf-go-api/internal/apperr"
	"etf-go-api/internal/models"
	"etf-go-api/internal/prices"
)

// Result holds the three derived views of an ETF.
type Result struct {
	Constituents []models.Constituent
	TopHoldings  []models.TopHolding
	ETFPrices    []models.ETFPrice
}

// Calculator joins validated constituent weights against a price source.
type Calculator struct {
	prices prices.Source
}

func NewCalculator(src prices.Source) *Calculator {
	return &Calculator{prices: src}
}

// Compute resolves the constituents' price columns and derives the analytics.
// topN <= 0 yields no top holdings.
func (c *Calculator) Compute(ctx context.Context, table *ConstituentTable, topN int) (*Result, error) {
	resolved, err := prices.Resolve(ctx, c.prices, table.Names())
	if err != nil {
		return nil, err
	}
	return Analyze(table, resolved, topN)
}

// Analyze derives the analytics from an already resolved price table.
func Analyze(table *ConstituentTable, pt *prices.Table, topN int) (*Result, error) {
	rows := table.Rows()
	for _, r := range rows {
		if !pt.Has(r.Name) {
			return nil, apperr.PriceNotFound(r.Name)
		}
	}

	dates := pt.Dates()
	series := make([]models.ETFPrice, 0, len(dates))
	latest := -1
	for i, d := range dates {
		total, ok := weightedPrice(rows, pt, i)
		if !ok {
			continue
		}
		series = append(series, models.ETFPrice{
			Date:  d.Format(prices.DateLayout),
			Price: round(total, 2),
		})
		if latest < 0 || d.After(dates[latest]) {
			latest = i
		}
	}
	if latest < 0 {
		return nil, apperr.PriceNotFound(firstUnpriced(rows, pt))
	}

	constituents := make([]models.Constituent, len(rows))
	holdings := make([]models.TopHolding, len(rows))
	for i, r := range rows {
		price, _ := pt.Price(r.Name, latest)
		constituents[i] = models.Constituent{
			Name:   r.Name,
			Weight: r.Weight,
			Price:  round(price, 3),
		}
		holdings[i] = models.TopHolding{
			Name:        r.Name,
			HoldingSize: round(r.Weight*price, 3),
		}
	}

	sort.SliceStable(constituents, func(i, j int) bool {
		return constituents[i].Name < constituents[j].Name
	})
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].HoldingSize > holdings[j].HoldingSize
	})

	return &Result{
		Constituents: constituents,
		TopHoldings:  topHoldings(holdings, topN),
		ETFPrices:    series,
	}, nil
}

// weightedPrice sums weight*price on row i; ok is false when any constituent has no
// price that day.
func weightedPrice(rows []ConstituentRow, pt *prices.Table, i int) (float64, bool) {
	total := 0.0
	for _, r := range rows {
		p, ok := pt.Price(r.Name, i)
		if !ok {
			return 0, false
		}
		total += r.Weight * p
	}
	return total, true
}

// firstUnpriced names the first constituent without a price on the table's latest date.
func firstUnpriced(rows []ConstituentRow, pt *prices.Table) string {
	dates := pt.Dates()
	last := -1
	for i, d := range dates {
		if last < 0 || d.After(dates[last]) {
			last = i
		}
	}
	for _, r := range rows {
		if _, ok := pt.Price(r.Name, last); !ok {
			return r.Name
		}
	}
	return rows[0].Name
}

func topHoldings(sorted []models.TopHolding, n int) []models.TopHolding {
	if n <= 0 {
		return []models.TopHolding{}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// round rounds half away from zero on the shortest decimal form of x.
func round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
