package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Number is a leniently coerced numeric cell. Valid is false when the cell
// was empty or could not be parsed.
type Number struct {
	Value float64
	Valid bool
}

// ParseNumber converts a cell into a Number. Anything that does not parse as
// a finite float becomes missing rather than an error.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

// String renders the number in its shortest exact form, or "" when missing.
func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
