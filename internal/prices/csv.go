package prices

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// CSVSource reads a wide price file: a date column plus one column per symbol.
// Rows keep the order they have in the file.
type CSVSource struct {
	path       string
	dateColumn string
}

func NewCSVSource(path, dateColumn string) *CSVSource {
	return &CSVSource{path: path, dateColumn: dateColumn}
}

func (s *CSVSource) Load(ctx context.Context) (*Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, s.dateColumn)
}

// ReadCSV parses a wide price table from r.
func ReadCSV(r io.Reader, dateColumn string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read price header: %w", err)
	}

	dateIdx := -1
	var symbols []string
	symbolIdx := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == dateColumn {
			dateIdx = i
			continue
		}
		if h == "" {
			continue
		}
		if _, dup := symbolIdx[h]; dup {
			continue
		}
		symbolIdx[h] = i
		symbols = append(symbols, h)
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("price file has no %q column", dateColumn)
	}

	var dates []time.Time
	columns := make(map[string][]float64, len(symbols))
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read price row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		d, err := parseDate(field(rec, dateIdx))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dates = append(dates, d)

		for _, sym := range symbols {
			p, err := parsePrice(field(rec, symbolIdx[sym]))
			if err != nil {
				return nil, fmt.Errorf("line %d, %s: %w", line, sym, err)
			}
			columns[sym] = append(columns[sym], p)
		}
	}
	for _, sym := range symbols {
		if columns[sym] == nil {
			columns[sym] = []float64{}
		}
	}
	return NewTable(dates, symbols, columns)
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return truncateDay(d), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

// parsePrice returns NaN for an empty cell.
func parsePrice(v string) (float64, error) {
	if v == "" {
		return math.NaN(), nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", v)
	}
	return d.InexactFloat64(), nil
}
