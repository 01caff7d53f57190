// Package prices provides the historical daily price table the ETF calculator joins
// constituent weights against, and the backends that can supply it.
package prices

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the wire format for price dates.
const DateLayout = "2006-01-02"

// Table is a column-major price table: one date column and one price column per
// symbol. A missing price is stored as NaN. Tables are never mutated once built.
type Table struct {
	dates   []time.Time
	symbols []string
	columns map[string][]float64
}

// NewTable builds a table, checking that every column has one cell per date.
func NewTable(dates []time.Time, symbols []string, columns map[string][]float64) (*Table, error) {
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if seen[sym] {
			return nil, fmt.Errorf("duplicate symbol column %q", sym)
		}
		seen[sym] = true
		col, ok := columns[sym]
		if !ok {
			return nil, fmt.Errorf("no prices for symbol column %q", sym)
		}
		if len(col) != len(dates) {
			return nil, fmt.Errorf("symbol %q has %d prices for %d dates", sym, len(col), len(dates))
		}
	}
	return &Table{dates: dates, symbols: symbols, columns: columns}, nil
}

// Observation is a single dated price, the long-format row stored by database backends.
type Observation struct {
	Date   time.Time
	Symbol string
	Price  float64
}

// FromObservations pivots long-format observations into a table with ascending dates
// and alphabetically ordered symbol columns. A later observation for the same date
// and symbol replaces an earlier one.
func FromObservations(obs []Observation) *Table {
	dateIdx := make(map[time.Time]int)
	var dates []time.Time
	symSet := make(map[string]bool)
	for _, o := range obs {
		d := truncateDay(o.Date)
		if _, ok := dateIdx[d]; !ok {
			dateIdx[d] = 0
			dates = append(dates, d)
		}
		symSet[o.Symbol] = true
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for i, d := range dates {
		dateIdx[d] = i
	}

	symbols := make([]string, 0, len(symSet))
	for s := range symSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	columns := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		columns[s] = col
	}
	for _, o := range obs {
		columns[o.Symbol][dateIdx[truncateDay(o.Date)]] = o.Price
	}
	return &Table{dates: dates, symbols: symbols, columns: columns}
}

func (t *Table) Len() int { return len(t.dates) }

// Dates returns the date column in table order.
func (t *Table) Dates() []time.Time {
	cp := make([]time.Time, len(t.dates))
	copy(cp, t.dates)
	return cp
}

// Symbols returns the symbol columns in table order.
func (t *Table) Symbols() []string {
	cp := make([]string, len(t.symbols))
	copy(cp, t.symbols)
	return cp
}

func (t *Table) Has(symbol string) bool {
	_, ok := t.columns[symbol]
	return ok
}

// Price returns the price of symbol on row i. ok is false when the column is absent
// or the cell is missing.
func (t *Table) Price(symbol string, i int) (float64, bool) {
	col, ok := t.columns[symbol]
	if !ok || i < 0 || i >= len(col) || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// Subset keeps the date column and the columns of the requested symbols that exist,
// in table order. Unknown symbols are dropped silently; callers check Has.
func (t *Table) Subset(symbols []string) *Table {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	out := &Table{dates: t.dates, columns: make(map[string][]float64)}
	for _, s := range t.symbols {
		if want[s] {
			out.symbols = append(out.symbols, s)
			out.columns[s] = t.columns[s]
		}
	}
	return out
}

func truncateDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Observations flattens the table into its present cells, date-major in table order.
func (t *Table) Observations() []Observation {
	var obs []Observation
	for i, d := range t.dates {
		for _, s := range t.symbols {
			if p, ok := t.Price(s, i); ok {
				obs = append(obs, Observation{Date: d, Symbol: s, Price: p})
			}
		}
	}
	return obs
}
