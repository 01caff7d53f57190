package prices

import (
	"context"
	"fmt"
)

// Writer persists a price table into a backend that can later serve it as a Source.
type Writer interface {
	Store(ctx context.Context, t *Table) (int, error)
}

// Seed copies every price from src into dst and returns the number of prices written.
func Seed(ctx context.Context, src Source, dst Writer) (int, error) {
	t, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load source prices: %w", err)
	}
	n, err := dst.Store(ctx, t)
	if err != nil {
		return n, fmt.Errorf("store prices: %w", err)
	}
	return n, nil
}

// RecordsFromTable converts a table into long-format rows.
func RecordsFromTable(t *Table) []PriceRecord {
	obs := t.Observations()
	records := make([]PriceRecord, len(obs))
	for i, o := range obs {
		records[i] = PriceRecord{Date: o.Date.Format(DateLayout), Symbol: o.Symbol, Close: o.Price}
	}
	return records
}

// DocumentsFromTable converts a table into one document per date. Missing cells are
// left out of the document's price map.
func DocumentsFromTable(t *Table) []PriceDocument {
	docs := make([]PriceDocument, 0, t.Len())
	byDate := make(map[string]int, t.Len())
	for _, o := range t.Observations() {
		date := o.Date.Format(DateLayout)
		i, ok := byDate[date]
		if !ok {
			i = len(docs)
			byDate[date] = i
			docs = append(docs, PriceDocument{Date: date, Prices: make(map[string]float64)})
		}
		docs[i].Prices[o.Symbol] = o.Price
	}
	return docs
}
