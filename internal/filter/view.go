package filter

import (
	"fmt"
	"strings"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
)

// RangePolicy decides when numeric ranges take part in filtering.
type RangePolicy string

const (
	// RangesAlways applies every narrowed range regardless of the
	// categorical selections.
	RangesAlways RangePolicy = "always"
	// RangesWithCategorical applies ranges only while at least one
	// categorical field has a selection; otherwise the whole table is shown.
	RangesWithCategorical RangePolicy = "with-categorical"
)

// ParsePolicy maps a configuration string to a RangePolicy. Empty selects
// RangesAlways.
func ParsePolicy(s string) (RangePolicy, error) {
	switch RangePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RangesAlways:
		return RangesAlways, nil
	case RangesWithCategorical:
		return RangesWithCategorical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// NoResultsMessage is shown in place of an empty view.
const NoResultsMessage = "No results found based on the selected filters."

// Row is one record of a view with its 1-based display index.
type Row struct {
	Index  int
	Record dataset.Record
}

// View is the ordered subset of a table that passes the current filters.
type View struct {
	Table *dataset.Table
	Rows  []Row
}

// Len returns the number of rows in the view.
func (v View) Len() int { return len(v.Rows) }

// Empty reports whether no row passed the filters.
func (v View) Empty() bool { return len(v.Rows) == 0 }

// Columns returns the header names of the view.
func (v View) Columns() []string {
	return v.Table.ColumnNames()
}

// RowCells returns the cells of row as every front end and export shows
// them. Numeric columns are normalised and missing values become empty.
func (v View) RowCells(row Row) []string {
	cols := v.Table.Columns()
	out := make([]string, len(cols))
	for i, col := range cols {
		if col.Kind == dataset.Numeric {
			out[i] = row.Record.Numbers[i].String()
			continue
		}
		out[i] = row.Record.Cells[i]
	}
	return out
}

// Cells returns the display cells of every row, header excluded.
func (v View) Cells() [][]string {
	out := make([][]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = v.RowCells(r)
	}
	return out
}

type predicate func(dataset.Record) bool

// ComputeView returns the records that satisfy every active constraint of s,
// in source order and numbered from 1. A categorical field constrains only
// when its selection is non-empty; a numeric field constrains only when its
// range is narrower than the column's extent, and then rows with a missing
// value never pass.
func ComputeView(table *dataset.Table, s State, policy RangePolicy) View {
	preds := make([]predicate, 0, len(Fields))

	for _, f := range CategoricalFields() {
		sel := s.Selections[f.Key]
		if len(sel) == 0 {
			continue
		}
		idx, ok := table.ColumnIndex(f.Column)
		if !ok {
			continue
		}
		set := make(map[string]struct{}, len(sel))
		for _, v := range sel {
			set[v] = struct{}{}
		}
		preds = append(preds, func(rec dataset.Record) bool {
			_, hit := set[strings.TrimSpace(rec.Cells[idx])]
			return hit
		})
	}

	if policy != RangesWithCategorical || s.HasCategorical() {
		for _, f := range NumericFields() {
			r, active := activeRange(table, s, f)
			if !active {
				continue
			}
			idx, _ := table.ColumnIndex(f.Column)
			preds = append(preds, func(rec dataset.Record) bool {
				n := rec.Numbers[idx]
				return n.Valid && r.Contains(n.Value)
			})
		}
	}

	view := View{Table: table, Rows: make([]Row, 0, table.Len())}
	for _, rec := range table.Records() {
		if matches(rec, preds) {
			view.Rows = append(view.Rows, Row{Index: len(view.Rows) + 1, Record: rec})
		}
	}
	return view
}

func matches(rec dataset.Record, preds []predicate) bool {
	for _, p := range preds {
		if !p(rec) {
			return false
		}
	}
	return true
}
