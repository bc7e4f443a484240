package filter

import "github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"

// Field binds a filter key to the dataset column it constrains.
type Field struct {
	Key    string             `json:"key"`
	Label  string             `json:"label"`
	Column string             `json:"column"`
	Kind   dataset.ColumnKind `json:"-"`
}

// Numeric reports whether the field is filtered by a closed range.
func (f Field) Numeric() bool {
	return f.Kind == dataset.Numeric
}

// Fields is the filter catalog in display order.
var Fields = []Field{
	{Key: "region", Label: "Select Region", Column: dataset.ColCountry},
	{Key: "pH", Label: "Select pH", Column: dataset.ColKind},
	{Key: "application", Label: "Select Application", Column: dataset.ColApplication},
	{Key: "form", Label: "Select Form", Column: dataset.ColEffect},
	{Key: "condition", Label: "Select Condition", Column: dataset.ColCondition},
	{Key: "etching_rate", Label: "Select Etching Rate", Column: dataset.ColEtchingRate},
	{Key: "contains_surfactants", Label: "Contains Surfactants", Column: dataset.ColContainsSurfactants},
	{Key: "concentration", Label: "Select Concentration", Column: dataset.ColConcentration, Kind: dataset.Numeric},
	{Key: "temp_min", Label: "Select Temp Min", Column: dataset.ColTempMin, Kind: dataset.Numeric},
	{Key: "temp_max", Label: "Select Temp Max", Column: dataset.ColTempMax, Kind: dataset.Numeric},
}

var fieldsByKey = func() map[string]Field {
	m := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		m[f.Key] = f
	}
	return m
}()

// Lookup finds a field by key.
func Lookup(key string) (Field, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// CategoricalFields returns the set-membership fields in display order.
func CategoricalFields() []Field {
	return fieldsOfKind(dataset.Categorical)
}

// NumericFields returns the range fields in display order.
func NumericFields() []Field {
	return fieldsOfKind(dataset.Numeric)
}

func fieldsOfKind(kind dataset.ColumnKind) []Field {
	var out []Field
	for _, f := range Fields {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
