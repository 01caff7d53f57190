package etf

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"etf-go-api/internal/apperr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WeightBand is the accepted range for the sum of all weights, bounds included.
type WeightBand struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultWeightBand accepts sums within 5% of 1.0.
func DefaultWeightBand() WeightBand {
	return WeightBand{
		Min: decimal.RequireFromString("0.95"),
		Max: decimal.RequireFromString("1.05"),
	}
}

// Validator turns raw uploaded CSV content into a ConstituentTable, or reports the
// first rule the content breaks.
type Validator struct {
	band WeightBand
}

func NewValidator(band WeightBand) *Validator {
	return &Validator{band: band}
}

// ValidateFile reads and validates the CSV stored at path.
func (v *Validator) ValidateFile(path string) (*ConstituentTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.FileNotFound(err)
		}
		return nil, apperr.FileUnreadable(err)
	}
	return v.ValidateBytes(data)
}

// Validate reads r to the end and validates its content.
func (v *Validator) Validate(r io.Reader) (*ConstituentTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.FileUnreadable(err)
	}
	return v.ValidateBytes(data)
}

// ValidateBytes applies the rule chain to data. Rules run in a fixed order and the
// first failure is returned; later rules are never evaluated.
func (v *Validator) ValidateBytes(data []byte) (*ConstituentTable, error) {
	s, err := parseSheet(data)
	if err != nil {
		return nil, err
	}
	for _, check := range v.rules() {
		if err := check(s); err != nil {
			return nil, err
		}
	}
	return s.constituents(), nil
}

// rule inspects a parsed sheet and returns nil when it passes.
type rule func(*sheet) *apperr.Error

func (v *Validator) rules() []rule {
	return []rule{
		checkNotEmpty,
		checkRequiredColumns,
		checkHasRows,
		checkNamesPresent,
		checkNamesAreText,
		checkWeightsPresent,
		checkWeightsNumeric,
		checkWeightsNotNegative,
		checkWeightsAtMostOne,
		v.checkWeightSum,
	}
}

// sheet is the raw parsed CSV: a trimmed header plus data records, which may be
// shorter than the header.
type sheet struct {
	header  []string
	records [][]string
}

func parseSheet(data []byte) (*sheet, *apperr.Error) {
	if !utf8.Valid(data) {
		return nil, apperr.Encoding()
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	s := &sheet{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.FormatMalformed(err.Error())
		}
		if s.header == nil {
			s.header = make([]string, len(rec))
			for i, h := range rec {
				s.header[i] = strings.TrimSpace(h)
			}
			continue
		}
		if len(rec) > len(s.header) {
			line, _ := r.FieldPos(0)
			return nil, apperr.FormatMalformed(fmt.Sprintf(
				"Expected %d fields in line %d, saw %d", len(s.header), line, len(rec)))
		}
		s.records = append(s.records, rec)
	}
	return s, nil
}

// columns returns the non-blank header names.
func (s *sheet) columns() []string {
	cols := make([]string, 0, len(s.header))
	for _, h := range s.header {
		if h != "" {
			cols = append(cols, h)
		}
	}
	return cols
}

func (s *sheet) index(column string) int {
	for i, h := range s.header {
		if h == column {
			return i
		}
	}
	return -1
}

// cell returns the trimmed value of column in data row i, and false when the cell
// is absent or blank.
func (s *sheet) cell(i int, column string) (string, bool) {
	idx := s.index(column)
	rec := s.records[i]
	if idx < 0 || idx >= len(rec) {
		return "", false
	}
	v := strings.TrimSpace(rec[idx])
	return v, v != ""
}

func (s *sheet) missing(column string) []int {
	var rows []int
	for i := range s.records {
		if _, ok := s.cell(i, column); !ok {
			rows = append(rows, i)
		}
	}
	return rows
}

// weights parses every weight cell. Only meaningful once the presence and numeric
// rules have passed.
func (s *sheet) weights() []decimal.Decimal {
	out := make([]decimal.Decimal, len(s.records))
	for i := range s.records {
		v, _ := s.cell(i, ColumnWeight)
		out[i], _ = parseNumber(v)
	}
	return out
}

func (s *sheet) namesWhere(pred func(decimal.Decimal) bool) []string {
	var names []string
	for i, w := range s.weights() {
		if pred(w) {
			name, _ := s.cell(i, ColumnName)
			names = append(names, name)
		}
	}
	return names
}

func (s *sheet) constituents() *ConstituentTable {
	weights := s.weights()
	rows := make([]ConstituentRow, len(s.records))
	for i := range s.records {
		name, _ := s.cell(i, ColumnName)
		rows[i] = ConstituentRow{Name: name, Weight: weights[i].InexactFloat64()}
	}
	return NewConstituentTable(rows)
}

func checkNotEmpty(s *sheet) *apperr.Error {
	if len(s.columns()) == 0 {
		return apperr.StructurallyEmpty()
	}
	return nil
}

func checkRequiredColumns(s *sheet) *apperr.Error {
	var missing []string
	for _, col := range []string{ColumnName, ColumnWeight} {
		if s.index(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return apperr.MissingColumns(missing, s.columns())
	}
	return nil
}

func checkHasRows(s *sheet) *apperr.Error {
	if len(s.records) == 0 {
		return apperr.NoDataRows()
	}
	return nil
}

func checkNamesPresent(s *sheet) *apperr.Error {
	if rows := s.missing(ColumnName); len(rows) > 0 {
		return apperr.MissingNames(rows)
	}
	return nil
}

func checkNamesAreText(s *sheet) *apperr.Error {
	for i := range s.records {
		name, _ := s.cell(i, ColumnName)
		if !isText(name) {
			return apperr.InvalidNameType()
		}
	}
	return nil
}

func checkWeightsPresent(s *sheet) *apperr.Error {
	if rows := s.missing(ColumnWeight); len(rows) > 0 {
		return apperr.MissingWeights(rows)
	}
	return nil
}

func checkWeightsNumeric(s *sheet) *apperr.Error {
	var invalid []string
	for i := range s.records {
		v, _ := s.cell(i, ColumnWeight)
		if _, ok := parseNumber(v); !ok {
			invalid = append(invalid, v)
		}
	}
	if len(invalid) > 0 {
		return apperr.NonNumericWeights(invalid)
	}
	return nil
}

func checkWeightsNotNegative(s *sheet) *apperr.Error {
	names := s.namesWhere(func(w decimal.Decimal) bool { return w.IsNegative() })
	if len(names) > 0 {
		return apperr.NegativeWeights(names)
	}
	return nil
}

func checkWeightsAtMostOne(s *sheet) *apperr.Error {
	names := s.namesWhere(func(w decimal.Decimal) bool { return w.GreaterThan(decimal.NewFromInt(1)) })
	if len(names) > 0 {
		return apperr.WeightsExceedOne(names)
	}
	return nil
}

func (v *Validator) checkWeightSum(s *sheet) *apperr.Error {
	sum := decimal.Sum(decimal.Zero, s.weights()...)
	if sum.LessThan(v.band.Min) || sum.GreaterThan(v.band.Max) {
		return apperr.WeightSum(sum.StringFixed(4), sum.Shift(2).StringFixed(2))
	}
	return nil
}

// maxWeightExponent bounds the decimal exponent of a weight literal. Comparing or
// summing decimals rescales them to a common exponent, so an unbounded one such as
// "1e-10000000" turns into a multi-million digit computation.
const maxWeightExponent = 30

// parseNumber accepts an optionally signed decimal literal with an optional fraction
// and exponent, e.g. "0.25", "-1", ".5", "1e-2". The exponent must stay within
// maxWeightExponent and the value must be a finite float.
func parseNumber(v string) (decimal.Decimal, bool) {
	d, ok := parseDecimal(v)
	if !ok {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp > maxWeightExponent || exp < -maxWeightExponent {
		return decimal.Zero, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Zero, false
	}
	return d, true
}

// parseDecimal checks the literal grammar only.
func parseDecimal(v string) (decimal.Decimal, bool) {
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// isText reports whether a name cell holds text rather than a number or boolean.
func isText(v string) bool {
	if _, ok := parseDecimal(v); ok {
		return false
	}
	switch strings.ToLower(v) {
	case "true", "false":
		return false
	}
	return true
}
