// Package etf validates uploaded ETF constituent sheets and derives fund analytics
// from them.
package etf

const (
	ColumnName   = "name"
	ColumnWeight = "weight"
)

// ConstituentRow is one validated holding.
type ConstituentRow struct {
	Name   string
	Weight float64
}

// ConstituentTable is a validated, non-empty constituent sheet. It is built once per
// upload and never modified afterwards.
type ConstituentTable struct {
	rows []ConstituentRow
}

// NewConstituentTable wraps rows that are already known to be valid.
func NewConstituentTable(rows []ConstituentRow) *ConstituentTable {
	cp := make([]ConstituentRow, len(rows))
	copy(cp, rows)
	return &ConstituentTable{rows: cp}
}

// Columns returns the column set carried by a validated table.
func (t *ConstituentTable) Columns() []string {
	return []string{ColumnName, ColumnWeight}
}

func (t *ConstituentTable) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in upload order.
func (t *ConstituentTable) Rows() []ConstituentRow {
	cp := make([]ConstituentRow, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Names returns the constituent names in upload order.
func (t *ConstituentTable) Names() []string {
	names := make([]string, len(t.rows))
	for i, r := range t.rows {
		names[i] = r.Name
	}
	return names
}
