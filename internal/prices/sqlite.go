package prices

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PriceRecord is a long-format row of the prices table.
type PriceRecord struct {
	ID     uint    `gorm:"primaryKey"`
	Date   string  `gorm:"size:10;not null;uniqueIndex:idx_prices_date_symbol"`
	Symbol string  `gorm:"size:32;not null;uniqueIndex:idx_prices_date_symbol;index"`
	Close  float64 `gorm:"not null"`
}

func (PriceRecord) TableName() string { return "prices" }

const upsertBatchSize = 500

// SQLiteSource serves prices stored in a SQLite database.
type SQLiteSource struct {
	db *gorm.DB
}

func NewSQLiteSource(path string) (*SQLiteSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PriceRecord{}); err != nil {
		return nil, err
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Load(ctx context.Context) (*Table, error) {
	var records []PriceRecord
	if err := s.db.WithContext(ctx).Order("date asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	return recordsToTable(records)
}

// LoadSymbols restricts the query to the requested symbols.
func (s *SQLiteSource) LoadSymbols(ctx context.Context, symbols []string) (*Table, error) {
	var records []PriceRecord
	err := s.db.WithContext(ctx).
		Where("symbol IN ?", symbols).
		Order("date asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	return recordsToTable(records)
}

// Upsert inserts records, overwriting the close of existing (date, symbol) pairs.
func (s *SQLiteSource) Upsert(ctx context.Context, records []PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if _, err := parseDate(r.Date); err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"close"}),
	}).CreateInBatches(&records, upsertBatchSize).Error
}

// Store upserts every present cell of t.
func (s *SQLiteSource) Store(ctx context.Context, t *Table) (int, error) {
	records := RecordsFromTable(t)
	if err := s.Upsert(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *SQLiteSource) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordsToTable(records []PriceRecord) (*Table, error) {
	obs := make([]Observation, 0, len(records))
	for _, r := range records {
		d, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
		obs = append(obs, Observation{Date: d, Symbol: r.Symbol, Price: r.Close})
	}
	return FromObservations(obs), nil
}
