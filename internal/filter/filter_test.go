package filter

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/shared/testutil"
)

func products(v View) []string {
	out := make([]string, 0, v.Len())
	for _, r := range v.Rows {
		out = append(out, r.Record.Cells[0])
	}
	return out
}

func indexes(v View) []int {
	out := make([]int, 0, v.Len())
	for _, r := range v.Rows {
		out = append(out, r.Index)
	}
	return out
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("region")
	require.True(t, ok)
	assert.Equal(t, dataset.ColCountry, f.Column)
	assert.False(t, f.Numeric())

	f, ok = Lookup("temp_max")
	require.True(t, ok)
	assert.True(t, f.Numeric())

	_, ok = Lookup("colour")
	assert.False(t, ok)

	assert.Len(t, CategoricalFields(), 7)
	assert.Len(t, NumericFields(), 3)
}

func TestNewState(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	for _, f := range CategoricalFields() {
		assert.Empty(t, s.Selections[f.Key], f.Key)
	}
	assert.Equal(t, Range{Min: 1.5, Max: 20}, s.Ranges["concentration"])
	assert.Equal(t, Range{Min: 15, Max: 60}, s.Ranges["temp_min"])
	assert.Equal(t, Range{Min: 40, Max: 95}, s.Ranges["temp_max"])
	assert.False(t, s.HasCategorical())
	assert.Empty(t, s.Summary(table))
}

func TestApplySelection(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	tests := []struct {
		name        string
		key         string
		values      []string
		wantChanged bool
		wantValues  []string
		wantErr     error
	}{
		{name: "new selection", key: "region", values: []string{"DE"}, wantChanged: true, wantValues: []string{"DE"}},
		{name: "normalized order and duplicates", key: "pH", values: []string{"Neutral", "Alkaline", "Neutral"}, wantChanged: true, wantValues: []string{"Alkaline", "Neutral"}},
		{name: "blank values ignored", key: "form", values: []string{" ", ""}, wantChanged: false, wantValues: []string{}},
		{name: "empty keeps empty", key: "condition", values: nil, wantChanged: false, wantValues: []string{}},
		{name: "unknown field", key: "colour", values: []string{"red"}, wantErr: ErrUnknownField},
		{name: "unknown value", key: "region", values: []string{"FR"}, wantErr: ErrUnknownValue},
		{name: "numeric field", key: "concentration", values: []string{"5"}, wantErr: ErrNotCategorical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed, err := ApplySelection(table, s, tt.key, tt.values)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, changed)
				assert.True(t, next.Equal(s))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantValues, next.Selections[tt.key])
		})
	}
}

func TestApplySelectionChangeDetection(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	s, changed, err := ApplySelection(table, s, "region", []string{"US", "DE"})
	require.NoError(t, err)
	require.True(t, changed)

	before := s.Clone()
	s, changed, err = ApplySelection(table, s, "region", []string{"DE", "US"})
	require.NoError(t, err)
	assert.False(t, changed, "reordered input is not a change")
	assert.Equal(t, before, s)

	s, changed, err = ApplySelection(table, s, "region", nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, s.Selections["region"])

	assert.Equal(t, []string{"US", "DE"}, before.Selections["region"], "earlier state is not mutated")
}

func TestApplyRange(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	tests := []struct {
		name        string
		key         string
		lo, hi      float64
		wantChanged bool
		want        Range
		wantErr     error
	}{
		{name: "narrowed", key: "concentration", lo: 5, hi: 10, wantChanged: true, want: Range{Min: 5, Max: 10}},
		{name: "clamped to extent", key: "concentration", lo: -100, hi: 100, wantChanged: false, want: Range{Min: 1.5, Max: 20}},
		{name: "above extent", key: "temp_max", lo: 200, hi: 300, wantChanged: true, want: Range{Min: 95, Max: 95}},
		{name: "single point", key: "temp_min", lo: 20, hi: 20, wantChanged: true, want: Range{Min: 20, Max: 20}},
		{name: "reversed", key: "concentration", lo: 10, hi: 5, wantErr: ErrInvalidRange},
		{name: "infinite bounds clamp", key: "temp_max", lo: math.Inf(-1), hi: math.Inf(1), wantChanged: false, want: Range{Min: 40, Max: 95}},
		{name: "NaN min", key: "concentration", lo: math.NaN(), hi: 10, wantErr: ErrInvalidRange},
		{name: "NaN max", key: "concentration", lo: 5, hi: math.NaN(), wantErr: ErrInvalidRange},
		{name: "categorical field", key: "region", lo: 1, hi: 2, wantErr: ErrNotNumeric},
		{name: "unknown field", key: "ph_level", lo: 1, hi: 2, wantErr: ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed, err := ApplyRange(table, s, tt.key, tt.lo, tt.hi)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, changed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, next.Ranges[tt.key])
		})
	}
}

func TestApplyRangeWithoutNumbers(t *testing.T) {
	table, err := dataset.NewTable(testutil.SampleHeader, [][]string{
		{"CL-1", "US", "Alkaline", "Steel", "Degreasing", "Spray", "Low", "Yes", "", "20", "40"},
	})
	require.NoError(t, err)

	_, _, err = ApplyRange(table, NewState(table), "concentration", 1, 2)
	assert.ErrorIs(t, err, ErrNoBounds)
	assert.Equal(t, 1, ComputeView(table, NewState(table), RangesAlways).Len())
}

func TestComputeViewCategorical(t *testing.T) {
	table := testutil.SampleTable(t)

	s, _, err := ApplySelection(table, NewState(table), "region", []string{"DE"})
	require.NoError(t, err)

	view := ComputeView(table, s, RangesAlways)

	want := []string{"CL-110", "CL-130", "CL-150", "CL-170", "CL-190"}
	if diff := cmp.Diff(want, products(view)); diff != "" {
		t.Errorf("DE rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, indexes(view))
	for _, r := range view.Rows {
		assert.Equal(t, "DE", table.Cell(r.Record, dataset.ColCountry))
	}
}

func TestComputeViewIntersection(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	s, _, err := ApplySelection(table, s, "region", []string{"DE"})
	require.NoError(t, err)
	s, _, err = ApplySelection(table, s, "pH", []string{"Alkaline"})
	require.NoError(t, err)

	view := ComputeView(table, s, RangesAlways)
	assert.Equal(t, []string{"CL-130", "CL-190"}, products(view))

	s, _, err = ApplyRange(table, s, "temp_max", 40, 85)
	require.NoError(t, err)
	view = ComputeView(table, s, RangesAlways)
	assert.Equal(t, []string{"CL-130"}, products(view))
	assert.Equal(t, []int{1}, indexes(view))
}

func TestComputeViewRange(t *testing.T) {
	table := testutil.SampleTable(t)

	s, _, err := ApplyRange(table, NewState(table), "concentration", 5, 10)
	require.NoError(t, err)

	view := ComputeView(table, s, RangesAlways)
	assert.Equal(t, []string{"CL-110", "CL-130", "CL-150"}, products(view))
	for _, r := range view.Rows {
		n := table.Number(r.Record, dataset.ColConcentration)
		assert.True(t, n.Valid)
		assert.True(t, n.Value >= 5 && n.Value <= 10)
	}
}

func TestComputeViewMissingNumbers(t *testing.T) {
	table := testutil.SampleTable(t)

	full := ComputeView(table, NewState(table), RangesAlways)
	assert.Contains(t, products(full), "CL-180", "full extent does not drop missing values")

	s, _, err := ApplyRange(table, NewState(table), "concentration", 1.5, 19)
	require.NoError(t, err)
	view := ComputeView(table, s, RangesAlways)
	assert.NotContains(t, products(view), "CL-180")
	assert.NotContains(t, products(view), "CL-170")
	assert.Equal(t, 8, view.Len())
}

func TestComputeViewRangePolicy(t *testing.T) {
	table := testutil.SampleTable(t)

	s, _, err := ApplyRange(table, NewState(table), "concentration", 5, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, ComputeView(table, s, RangesAlways).Len())
	assert.Equal(t, 10, ComputeView(table, s, RangesWithCategorical).Len(), "ranges idle without a categorical filter")

	s, _, err = ApplySelection(table, s, "region", []string{"DE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CL-110", "CL-130", "CL-150"}, products(ComputeView(table, s, RangesWithCategorical)))

	s, _, err = ApplySelection(table, s, "region", []string{"US"})
	require.NoError(t, err)
	assert.True(t, ComputeView(table, s, RangesWithCategorical).Empty())
}

func TestComputeViewSingleValueSelections(t *testing.T) {
	table := testutil.SampleTable(t)

	for _, f := range CategoricalFields() {
		for _, vc := range table.Counts(f.Column) {
			s, changed, err := ApplySelection(table, NewState(table), f.Key, []string{vc.Value})
			require.NoError(t, err)
			require.True(t, changed)

			view := ComputeView(table, s, RangesAlways)
			assert.Equal(t, vc.Count, view.Len(), "%s=%s", f.Column, vc.Value)
			for _, r := range view.Rows {
				assert.Equal(t, vc.Value, table.Cell(r.Record, f.Column))
			}
		}
	}
}

func TestClear(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	s, _, err := ApplySelection(table, s, "region", []string{"DE"})
	require.NoError(t, err)
	s, _, err = ApplySelection(table, s, "contains_surfactants", []string{"No"})
	require.NoError(t, err)
	s, _, err = ApplyRange(table, s, "concentration", 5, 10)
	require.NoError(t, err)
	require.Equal(t, 3, ComputeView(table, s, RangesAlways).Len())

	cleared, refresh := Clear(table)
	assert.True(t, refresh)
	assert.True(t, cleared.Equal(NewState(table)))
	for _, f := range CategoricalFields() {
		assert.Empty(t, cleared.Selections[f.Key])
	}
	assert.Equal(t, Range{Min: 1.5, Max: 20}, cleared.Ranges["concentration"])

	view := ComputeView(table, cleared, RangesAlways)
	assert.Equal(t, table.Len(), view.Len())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, indexes(view))
}

func TestReconcile(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	next, changed, err := Reconcile(table, s, Submission{
		Selections: map[string][]string{
			"region": {"DE"},
			"pH":     {},
		},
		Ranges: map[string]Range{
			"concentration": {Min: 5, Max: 10},
			"temp_min":      {Min: 15, Max: 60},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "concentration"}, changed)
	assert.Equal(t, []string{"DE"}, next.Selections["region"])

	_, changed, err = Reconcile(table, next, Submission{Selections: map[string][]string{"region": {"DE"}}})
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestReconcileIsAtomic(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	tests := []struct {
		name    string
		sub     Submission
		wantErr error
	}{
		{
			name: "bad value after good one",
			sub: Submission{Selections: map[string][]string{
				"region":       {"DE"},
				"etching_rate": {"Extreme"},
			}},
			wantErr: ErrUnknownValue,
		},
		{
			name:    "reversed range",
			sub:     Submission{Ranges: map[string]Range{"temp_max": {Min: 90, Max: 50}}},
			wantErr: ErrInvalidRange,
		},
		{
			name:    "selection for numeric field",
			sub:     Submission{Selections: map[string][]string{"temp_min": {"20"}}},
			wantErr: ErrNotCategorical,
		},
		{
			name:    "range for categorical field",
			sub:     Submission{Ranges: map[string]Range{"region": {Min: 1, Max: 2}}},
			wantErr: ErrNotNumeric,
		},
		{
			name:    "unknown field",
			sub:     Submission{Ranges: map[string]Range{"viscosity": {Min: 1, Max: 2}}},
			wantErr: ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed, err := Reconcile(table, s, tt.sub)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, changed)
			assert.True(t, next.Equal(s))
		})
	}
}

func TestSummary(t *testing.T) {
	table := testutil.SampleTable(t)
	s := NewState(table)

	s, _, err := ApplySelection(table, s, "region", []string{"US", "DE"})
	require.NoError(t, err)
	s, _, err = ApplyRange(table, s, "concentration", 5, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"Country: US, DE", "Conc.: 5 to 10"}, s.Summary(table))
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    RangePolicy
		wantErr bool
	}{
		{"", RangesAlways, false},
		{"always", RangesAlways, false},
		{" With-Categorical ", RangesWithCategorical, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownPolicy)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
