package prices

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteSource {
	t.Helper()
	src, err := NewSQLiteSource(filepath.Join(t.TempDir(), "db", "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestSQLiteSource_LoadAndUpsert(t *testing.T) {
	ctx := context.Background()
	src := newTestSQLite(t)

	require.NoError(t, src.Upsert(ctx, []PriceRecord{
		{Date: "2024-01-02", Symbol: "AAA", Close: 11},
		{Date: "2024-01-01", Symbol: "AAA", Close: 10},
		{Date: "2024-01-01", Symbol: "BBB", Close: 20},
		{Date: "2024-01-02", Symbol: "BBB", Close: 21},
	}))
	// Overwrite an existing close.
	require.NoError(t, src.Upsert(ctx, []PriceRecord{{Date: "2024-01-02", Symbol: "BBB", Close: 22}}))

	table, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, table.Symbols())
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, formatDates(table))

	p, ok := table.Price("BBB", 1)
	require.True(t, ok)
	assert.Equal(t, 22.0, p)
}

func TestSQLiteSource_LoadSymbols(t *testing.T) {
	ctx := context.Background()
	src := newTestSQLite(t)

	require.NoError(t, src.Upsert(ctx, []PriceRecord{
		{Date: "2024-01-01", Symbol: "AAA", Close: 10},
		{Date: "2024-01-01", Symbol: "BBB", Close: 20},
	}))

	table, err := Resolve(ctx, src, []string{"BBB", "ZZZ"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BBB"}, table.Symbols())
}

func TestSQLiteSource_RejectsBadDate(t *testing.T) {
	src := newTestSQLite(t)
	err := src.Upsert(context.Background(), []PriceRecord{{Date: "01/02/2024", Symbol: "AAA", Close: 1}})
	assert.Error(t, err)
}

func TestNewSQLiteSource_EmptyPath(t *testing.T) {
	_, err := NewSQLiteSource("  ")
	assert.Error(t, err)
}

func formatDates(t *Table) []string {
	out := make([]string, 0, t.Len())
	for _, d := range t.Dates() {
		out = append(out, d.Format(DateLayout))
	}
	return out
}

func TestSeed_CSVIntoSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(samplePrices), 0o600))
	dst := newTestSQLite(t)

	n, err := Seed(ctx, NewCSVSource(path, "DATE"), dst)
	require.NoError(t, err)
	assert.Equal(t, 8, n, "the empty CCC cell is not written")

	table, err := dst.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, formatDates(table))
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, table.Symbols())
	_, ok := table.Price("CCC", 0)
	assert.False(t, ok)
	p, ok := table.Price("BBB", 2)
	require.True(t, ok)
	assert.Equal(t, 21.0, p)

	// Seeding again overwrites instead of duplicating.
	n, err = Seed(ctx, NewCSVSource(path, "DATE"), dst)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestSeed_SourceFailure(t *testing.T) {
	dst := newTestSQLite(t)
	_, err := Seed(context.Background(), NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), "DATE"), dst)
	assert.ErrorContains(t, err, "load source prices")
}
