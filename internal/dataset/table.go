package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Column names the selector depends on.
const (
	ColCountry             = "Country"
	ColKind                = "Kind"
	ColApplication         = "Application"
	ColEffect              = "Effect"
	ColCondition           = "Condition"
	ColEtchingRate         = "Etching Rate"
	ColContainsSurfactants = "contains Surfactants"
	ColConcentration       = "Conc."
	ColTempMin             = "Temp min"
	ColTempMax             = "Temp max"
)

// CategoricalColumns lists the required columns filtered by set membership.
var CategoricalColumns = []string{
	ColCountry,
	ColKind,
	ColApplication,
	ColEffect,
	ColCondition,
	ColEtchingRate,
	ColContainsSurfactants,
}

// NumericColumns lists the required columns filtered by closed ranges.
var NumericColumns = []string{
	ColConcentration,
	ColTempMin,
	ColTempMax,
}

// ColumnKind tells how a column's cells are interpreted.
type ColumnKind int

const (
	Categorical ColumnKind = iota
	Numeric
)

func (k ColumnKind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column describes one dataset column.
type Column struct {
	Name string
	Kind ColumnKind
}

// Record is one dataset row. Cells holds the raw text of every column in
// table order; Numbers holds the coerced value for numeric columns and an
// invalid Number everywhere else.
type Record struct {
	Cells   []string
	Numbers []Number
}

// Table is an immutable, ordered set of records sharing one column layout.
type Table struct {
	columns []Column
	index   map[string]int
	records []Record
}

// NewTable builds a table from a header row and data rows. Header cells are
// trimmed, short rows are padded, fully blank rows are dropped and every
// required column must be present.
func NewTable(header []string, rows [][]string) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(header)),
		index:   make(map[string]int, len(header)),
	}

	numeric := make(map[string]bool, len(NumericColumns))
	for _, name := range NumericColumns {
		numeric[name] = true
	}

	for i, h := range header {
		name := strings.TrimSpace(h)
		kind := Categorical
		if numeric[name] {
			kind = Numeric
		}
		t.columns = append(t.columns, Column{Name: name, Kind: kind})
		if _, dup := t.index[name]; !dup && name != "" {
			t.index[name] = i
		}
	}

	if missing := t.missingColumns(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	t.records = make([]Record, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		t.records = append(t.records, t.newRecord(row))
	}

	return t, nil
}

func (t *Table) newRecord(row []string) Record {
	rec := Record{
		Cells:   make([]string, len(t.columns)),
		Numbers: make([]Number, len(t.columns)),
	}
	for i, col := range t.columns {
		if i < len(row) {
			rec.Cells[i] = row[i]
		}
		if col.Kind == Numeric {
			rec.Numbers[i] = ParseNumber(rec.Cells[i])
		}
	}
	return rec
}

func (t *Table) missingColumns() []string {
	var missing []string
	for _, name := range append(append([]string{}, CategoricalColumns...), NumericColumns...) {
		if _, ok := t.index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Columns returns the column layout in source order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the header names in source order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Records returns the rows in source order. Callers must not mutate them.
func (t *Table) Records() []Record {
	return t.records
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Cell returns the raw text of the named column for rec.
func (t *Table) Cell(rec Record, name string) string {
	i, ok := t.index[name]
	if !ok {
		return ""
	}
	return rec.Cells[i]
}

// Number returns the coerced numeric value of the named column for rec.
func (t *Table) Number(rec Record, name string) Number {
	i, ok := t.index[name]
	if !ok {
		return Number{}
	}
	return rec.Numbers[i]
}

// DistinctValues returns the non-blank values of a column in order of first
// appearance.
func (t *Table) DistinctValues(name string) []string {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var values []string
	for _, rec := range t.records {
		v := strings.TrimSpace(rec.Cells[i])
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// Extremes returns the smallest and largest valid value of a numeric column.
// ok is false when the column holds no valid numbers.
func (t *Table) Extremes(name string) (lo, hi float64, ok bool) {
	i, found := t.index[name]
	if !found {
		return 0, 0, false
	}
	for _, rec := range t.records {
		n := rec.Numbers[i]
		if !n.Valid {
			continue
		}
		if !ok {
			lo, hi, ok = n.Value, n.Value, true
			continue
		}
		if n.Value < lo {
			lo = n.Value
		}
		if n.Value > hi {
			hi = n.Value
		}
	}
	return lo, hi, ok
}

// Counts returns how often each distinct value occurs in a column, sorted by
// descending count and then by value.
func (t *Table) Counts(name string) []ValueCount {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	counts := make(map[string]int)
	for _, rec := range t.records {
		if v := strings.TrimSpace(rec.Cells[i]); v != "" {
			counts[v]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Value < out[b].Value
	})
	return out
}

// ValueCount pairs a categorical value with its number of occurrences.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
