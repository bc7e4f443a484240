package filter

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
)

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the interval, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + " to " + strconv.FormatFloat(r.Max, 'f', -1, 64)
}

// State is the full set of filter selections for one session. Values are
// treated as immutable: every operation returns a fresh State.
type State struct {
	// Selections maps categorical field keys to selected values. An empty
	// selection leaves the field unconstrained.
	Selections map[string][]string `json:"selections"`
	// Ranges maps numeric field keys to the chosen interval.
	Ranges map[string]Range `json:"ranges"`
}

// NewState returns the default state for table: nothing selected and every
// range spanning its column's full extent.
func NewState(table *dataset.Table) State {
	s := State{
		Selections: make(map[string][]string),
		Ranges:     make(map[string]Range),
	}
	for _, f := range Fields {
		if f.Numeric() {
			s.Ranges[f.Key] = fullRange(table, f)
			continue
		}
		s.Selections[f.Key] = []string{}
	}
	return s
}

// Clear resets every field to its default. It always signals a refresh.
func Clear(table *dataset.Table) (State, bool) {
	return NewState(table), true
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Selections: make(map[string][]string, len(s.Selections)),
		Ranges:     make(map[string]Range, len(s.Ranges)),
	}
	for k, v := range s.Selections {
		out.Selections[k] = slices.Clone(v)
	}
	for k, v := range s.Ranges {
		out.Ranges[k] = v
	}
	return out
}

// HasCategorical reports whether any categorical field has a selection.
func (s State) HasCategorical() bool {
	for _, f := range Fields {
		if !f.Numeric() && len(s.Selections[f.Key]) > 0 {
			return true
		}
	}
	return false
}

// ApplySelection replaces the selection of a categorical field. Values are
// deduplicated and ordered like the column's distinct values, so the change
// signal ignores input order.
func ApplySelection(table *dataset.Table, s State, key string, values []string) (State, bool, error) {
	f, ok := Lookup(key)
	if !ok {
		return s, false, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	if f.Numeric() {
		return s, false, fmt.Errorf("%w: %q", ErrNotCategorical, key)
	}

	normalized, err := normalizeSelection(table, f, values)
	if err != nil {
		return s, false, err
	}
	if slices.Equal(s.Selections[key], normalized) {
		return s, false, nil
	}

	next := s.Clone()
	next.Selections[key] = normalized
	return next, true, nil
}

// ApplyRange replaces the interval of a numeric field. Bounds outside the
// column's extent, infinities included, are clamped to it; NaN is rejected.
func ApplyRange(table *dataset.Table, s State, key string, lo, hi float64) (State, bool, error) {
	f, ok := Lookup(key)
	if !ok {
		return s, false, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	if !f.Numeric() {
		return s, false, fmt.Errorf("%w: %q", ErrNotNumeric, key)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return s, false, fmt.Errorf("%w: %s bounds must be numbers", ErrInvalidRange, key)
	}
	if lo > hi {
		return s, false, fmt.Errorf("%w: %s min %v is above max %v", ErrInvalidRange, key, lo, hi)
	}

	colMin, colMax, ok := table.Extremes(f.Column)
	if !ok {
		return s, false, fmt.Errorf("%w: %s", ErrNoBounds, f.Column)
	}
	r := Range{Min: clamp(lo, colMin, colMax), Max: clamp(hi, colMin, colMax)}
	if s.Ranges[key] == r {
		return s, false, nil
	}

	next := s.Clone()
	next.Ranges[key] = r
	return next, true, nil
}

// Summary lists the active constraints in display order, e.g.
// "Country: DE" or "Conc.: 5 to 10".
func (s State) Summary(table *dataset.Table) []string {
	var out []string
	for _, f := range Fields {
		if f.Numeric() {
			if r, active := activeRange(table, s, f); active {
				out = append(out, f.Column+": "+r.String())
			}
			continue
		}
		if sel := s.Selections[f.Key]; len(sel) > 0 {
			out = append(out, f.Column+": "+strings.Join(sel, ", "))
		}
	}
	return out
}

func normalizeSelection(table *dataset.Table, f Field, values []string) ([]string, error) {
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			wanted[v] = true
		}
	}

	normalized := make([]string, 0, len(wanted))
	for _, v := range table.DistinctValues(f.Column) {
		if wanted[v] {
			normalized = append(normalized, v)
			delete(wanted, v)
		}
	}
	if len(wanted) > 0 {
		unknown := make([]string, 0, len(wanted))
		for v := range wanted {
			unknown = append(unknown, strconv.Quote(v))
		}
		slices.Sort(unknown)
		return nil, fmt.Errorf("%w for %s: %s", ErrUnknownValue, f.Column, strings.Join(unknown, ", "))
	}
	return normalized, nil
}

func fullRange(table *dataset.Table, f Field) Range {
	lo, hi, _ := table.Extremes(f.Column)
	return Range{Min: lo, Max: hi}
}

// activeRange returns the field's interval and whether it is narrower than
// the column's extent. A column without numbers is never constrained.
func activeRange(table *dataset.Table, s State, f Field) (Range, bool) {
	lo, hi, ok := table.Extremes(f.Column)
	if !ok {
		return Range{}, false
	}
	r, set := s.Ranges[f.Key]
	if !set {
		return Range{Min: lo, Max: hi}, false
	}
	return r, r.Min > lo || r.Max < hi
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
